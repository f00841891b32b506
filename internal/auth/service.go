package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/shopit-io/shopit/internal/database"
	"github.com/shopit-io/shopit/internal/mail"
	"github.com/shopit-io/shopit/internal/media"
	"github.com/shopit-io/shopit/internal/models"
)

// ErrInvalidCredentials covers both an unknown email and a wrong password.
// The two cases must stay indistinguishable to callers; logs tell them apart.
var ErrInvalidCredentials = errors.New("Invalid Email or Password")

// AvatarUploader pushes an avatar image to the media host.
type AvatarUploader interface {
	UploadAvatar(ctx context.Context, src media.Source) (models.Avatar, error)
}

// Options carries the service's configuration-derived values.
type Options struct {
	DefaultAvatar   models.Avatar
	ResetTokenTTL   time.Duration
	FrontendBaseURL string
}

// Service implements registration, login and the password-reset flow.
// Uploader and mailer may be nil when the corresponding integration is
// disabled; a nil uploader degrades to the default avatar, a nil mailer
// fails the forgot-password operation.
type Service struct {
	store    database.UserStore
	tokens   *TokenManager
	uploader AvatarUploader
	mailer   mail.Mailer
	opts     Options
}

// NewService constructs the auth service
func NewService(store database.UserStore, tokens *TokenManager, uploader AvatarUploader, mailer mail.Mailer, opts Options) *Service {
	if opts.ResetTokenTTL == 0 {
		opts.ResetTokenTTL = 30 * time.Minute
	}
	return &Service{
		store:    store,
		tokens:   tokens,
		uploader: uploader,
		mailer:   mailer,
		opts:     opts,
	}
}

// RegisterInput is the registration request payload.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Avatar   media.Source
}

// Register creates a new user and issues a session token. An avatar upload
// failure is non-fatal: the user is created with the default avatar.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, string, error) {
	if in.Name == "" || in.Email == "" || in.Password == "" {
		return nil, "", validationErr("Please provide name, email, and password")
	}
	if !ValidateEmail(in.Email) {
		return nil, "", validationErr("Please provide a valid email address")
	}
	if !ValidatePassword(in.Password) {
		return nil, "", validationErr(fmt.Sprintf("Password must be at least %d characters", MinPasswordLen))
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	avatar := s.opts.DefaultAvatar
	if !in.Avatar.IsZero() && s.uploader != nil {
		uploaded, err := s.uploader.UploadAvatar(ctx, in.Avatar)
		if err != nil {
			// Upload failure is not surfaced; the default avatar stands in.
			log.Printf("Avatar upload failed for %s: %v", in.Email, err)
		} else {
			avatar = uploaded
		}
	}

	user := &models.User{
		Name:     in.Name,
		Email:    in.Email,
		Password: string(hashed),
		Avatar:   avatar,
	}

	if err := s.store.Create(user); err != nil {
		return nil, "", err
	}

	token, err := s.tokens.GenerateToken(user)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue session token: %w", err)
	}

	return user, token, nil
}

// Login checks credentials and issues a session token. Unknown email and
// wrong password return the same error.
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	if email == "" || password == "" {
		return nil, "", validationErr("Please enter email & password")
	}

	user, err := s.store.GetByEmail(email)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			log.Printf("Login failed: no user with email %s", email)
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		log.Printf("Login failed: password mismatch for %s", email)
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateToken(user)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue session token: %w", err)
	}

	return user, token, nil
}

// ForgotPassword stores a hashed reset token on the user and emails the
// plaintext reset URL. If delivery fails the stored token is cleared again
// before the error is returned, so no orphaned token stays valid.
func (s *Service) ForgotPassword(ctx context.Context, email string) (string, error) {
	user, err := s.store.GetByEmail(email)
	if err != nil {
		return "", err
	}

	plaintext, err := generateResetToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate reset token: %w", err)
	}

	user.ResetPasswordToken = HashResetToken(plaintext)
	user.ResetPasswordExpires = time.Now().UTC().Add(s.opts.ResetTokenTTL)
	if err := s.store.Save(user); err != nil {
		return "", fmt.Errorf("failed to store reset token: %w", err)
	}

	resetURL := fmt.Sprintf("%s/password/reset/%s", s.opts.FrontendBaseURL, plaintext)
	msg := mail.Message{
		To:      user.Email,
		Subject: "ShopIT Password Recovery",
		Body: fmt.Sprintf("Your password reset token is as follow:\n\n%s\n\nIf you have not requested this email, then ignore it.",
			resetURL),
	}

	var sendErr error
	if s.mailer == nil {
		sendErr = errors.New("mail delivery is not configured")
	} else {
		sendErr = s.mailer.Send(ctx, msg)
	}
	if sendErr != nil {
		// Compensating action: the token was persisted for an email that
		// never went out, so roll the fields back before reporting.
		user.ResetPasswordToken = ""
		user.ResetPasswordExpires = time.Time{}
		if rollbackErr := s.store.Save(user); rollbackErr != nil {
			log.Printf("Failed to roll back reset token for %s: %v", user.Email, rollbackErr)
		}
		return "", fmt.Errorf("failed to send reset email: %w", sendErr)
	}

	return fmt.Sprintf("Email sent to: %s", user.Email), nil
}

// ResetPassword consumes a reset token: the presented plaintext is hashed,
// matched against a non-expired stored hash, and on success the password is
// replaced, the reset fields cleared, and a fresh session issued.
func (s *Service) ResetPassword(ctx context.Context, token, password, confirmPassword string) (*models.User, string, error) {
	if password == "" || confirmPassword == "" {
		return nil, "", validationErr("Please provide password and confirmPassword")
	}
	if password != confirmPassword {
		return nil, "", validationErr("Password does not match")
	}
	if !ValidatePassword(password) {
		return nil, "", validationErr(fmt.Sprintf("Password must be at least %d characters", MinPasswordLen))
	}

	user, err := s.store.GetByResetTokenHash(HashResetToken(token), time.Now())
	if err != nil {
		return nil, "", err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	user.Password = string(hashed)
	user.ResetPasswordToken = ""
	user.ResetPasswordExpires = time.Time{}
	if err := s.store.Save(user); err != nil {
		return nil, "", fmt.Errorf("failed to save new password: %w", err)
	}

	sessionToken, err := s.tokens.GenerateToken(user)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue session token: %w", err)
	}

	return user, sessionToken, nil
}

// Me returns the user for an authenticated session.
func (s *Service) Me(ctx context.Context, userID string) (*models.User, error) {
	return s.store.GetByID(userID)
}

// generateResetToken returns the plaintext reset token. Only its hash is
// ever stored.
func generateResetToken() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// HashResetToken derives the stored form of a reset token.
func HashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
