package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/shopit-io/shopit/internal/models"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrEmailTaken    = errors.New("user already exists with this email")
	ErrNoActiveReset = errors.New("reset token is invalid or has expired")
)

// UserStore defines the interface for user storage operations
type UserStore interface {
	Create(user *models.User) error
	GetByEmail(email string) (*models.User, error)
	GetByID(id string) (*models.User, error)
	Save(user *models.User) error
	GetByResetTokenHash(hash string, now time.Time) (*models.User, error)
}

// SQLUserStore implements UserStore over database/sql for both supported
// drivers.
type SQLUserStore struct {
	db     *sql.DB
	dbType string
}

// NewUserStore creates a new SQLUserStore
func NewUserStore(db *sql.DB, dbType string) *SQLUserStore {
	return &SQLUserStore{db: db, dbType: dbType}
}

// bind converts ?-style placeholders to $n for PostgreSQL.
func (s *SQLUserStore) bind(query string) string {
	if s.dbType != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// isUniqueViolation reports whether err is the storage layer rejecting a
// duplicate value on a UNIQUE column. Uniqueness of emails is enforced here,
// not by a pre-check in application code.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	return false
}

// Create stores a new user. A zero ID is assigned a fresh UUID. Returns
// ErrEmailTaken when the email is already registered.
func (s *SQLUserStore) Create(user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	query := s.bind(`
		INSERT INTO users (id, name, email, password, avatar_public_id, avatar_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := s.db.Exec(query,
		user.ID, user.Name, user.Email, user.Password,
		user.Avatar.PublicID, user.Avatar.URL,
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

const userColumns = `id, name, email, password, avatar_public_id, avatar_url,
	reset_password_token, reset_password_expires, created_at, updated_at`

func (s *SQLUserStore) scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	var resetToken sql.NullString
	var resetExpires sql.NullTime

	err := row.Scan(
		&user.ID, &user.Name, &user.Email, &user.Password,
		&user.Avatar.PublicID, &user.Avatar.URL,
		&resetToken, &resetExpires,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	if resetToken.Valid {
		user.ResetPasswordToken = resetToken.String
	}
	if resetExpires.Valid {
		user.ResetPasswordExpires = resetExpires.Time
	}
	return user, nil
}

// GetByEmail retrieves a user by email
func (s *SQLUserStore) GetByEmail(email string) (*models.User, error) {
	query := s.bind(`SELECT ` + userColumns + ` FROM users WHERE email = ?`)
	return s.scanUser(s.db.QueryRow(query, email))
}

// GetByID retrieves a user by ID
func (s *SQLUserStore) GetByID(id string) (*models.User, error) {
	query := s.bind(`SELECT ` + userColumns + ` FROM users WHERE id = ?`)
	return s.scanUser(s.db.QueryRow(query, id))
}

// Save writes back every mutable field of the user, including the
// reset-token pair. Empty reset fields are stored as NULL so a cleared
// token cannot match anything.
func (s *SQLUserStore) Save(user *models.User) error {
	user.UpdatedAt = time.Now().UTC()

	var resetToken sql.NullString
	var resetExpires sql.NullTime
	if user.ResetPasswordToken != "" {
		resetToken = sql.NullString{String: user.ResetPasswordToken, Valid: true}
		// Stored in UTC so the expiry comparison is driver-safe.
		resetExpires = sql.NullTime{Time: user.ResetPasswordExpires.UTC(), Valid: true}
	}

	query := s.bind(`
		UPDATE users
		SET name = ?, email = ?, password = ?, avatar_public_id = ?, avatar_url = ?,
			reset_password_token = ?, reset_password_expires = ?, updated_at = ?
		WHERE id = ?
	`)
	result, err := s.db.Exec(query,
		user.Name, user.Email, user.Password,
		user.Avatar.PublicID, user.Avatar.URL,
		resetToken, resetExpires, user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("failed to save user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

// GetByResetTokenHash finds the user holding a non-expired reset token with
// the given hash. Only the latest issued token can match because Save
// overwrites the single stored hash.
func (s *SQLUserStore) GetByResetTokenHash(hash string, now time.Time) (*models.User, error) {
	query := s.bind(`SELECT ` + userColumns + ` FROM users WHERE reset_password_token = ? AND reset_password_expires > ?`)
	user, err := s.scanUser(s.db.QueryRow(query, hash, now.UTC()))
	if err == ErrUserNotFound {
		return nil, ErrNoActiveReset
	}
	return user, err
}
