package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/shopit-io/shopit/internal/database"
	"github.com/shopit-io/shopit/internal/mail"
	"github.com/shopit-io/shopit/internal/media"
	"github.com/shopit-io/shopit/internal/models"
)

// fakeUserStore is an in-memory UserStore for service tests.
type fakeUserStore struct {
	users  map[string]*models.User // keyed by email
	nextID int
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]*models.User)}
}

func (f *fakeUserStore) Create(user *models.User) error {
	if _, ok := f.users[user.Email]; ok {
		return database.ErrEmailTaken
	}
	f.nextID++
	if user.ID == "" {
		user.ID = fmt.Sprintf("user-%d", f.nextID)
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()
	cp := *user
	f.users[user.Email] = &cp
	return nil
}

func (f *fakeUserStore) GetByEmail(email string) (*models.User, error) {
	u, ok := f.users[email]
	if !ok {
		return nil, database.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserStore) GetByID(id string) (*models.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, database.ErrUserNotFound
}

func (f *fakeUserStore) Save(user *models.User) error {
	for email, u := range f.users {
		if u.ID == user.ID {
			if email != user.Email {
				delete(f.users, email)
			}
			cp := *user
			f.users[user.Email] = &cp
			return nil
		}
	}
	return database.ErrUserNotFound
}

func (f *fakeUserStore) GetByResetTokenHash(hash string, now time.Time) (*models.User, error) {
	for _, u := range f.users {
		if u.ResetPasswordToken == hash && u.ResetPasswordExpires.After(now) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, database.ErrNoActiveReset
}

type mockUploader struct {
	mock.Mock
}

func (m *mockUploader) UploadAvatar(ctx context.Context, src media.Source) (models.Avatar, error) {
	args := m.Called(ctx, src)
	return args.Get(0).(models.Avatar), args.Error(1)
}

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) Send(ctx context.Context, msg mail.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

var defaultAvatar = models.Avatar{
	PublicID: "default_avatar",
	URL:      "/images/default_avatar.jpg",
}

func newTestService(store database.UserStore, uploader AvatarUploader, mailer mail.Mailer) *Service {
	tm := NewTokenManager("test-secret", time.Hour)
	return NewService(store, tm, uploader, mailer, Options{
		DefaultAvatar:   defaultAvatar,
		ResetTokenTTL:   30 * time.Minute,
		FrontendBaseURL: "http://localhost:5173",
	})
}

func registered(t *testing.T, svc *Service, email string) *models.User {
	t.Helper()
	user, _, err := svc.Register(context.Background(), RegisterInput{
		Name:     "Test User",
		Email:    email,
		Password: "hunter22",
	})
	require.NoError(t, err)
	return user
}

func TestRegister_MissingFields(t *testing.T) {
	tests := []struct {
		name  string
		input RegisterInput
	}{
		{"no name", RegisterInput{Email: "a@b.com", Password: "hunter22"}},
		{"no email", RegisterInput{Name: "A", Password: "hunter22"}},
		{"no password", RegisterInput{Name: "A", Email: "a@b.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeUserStore()
			svc := newTestService(store, nil, nil)

			_, _, err := svc.Register(context.Background(), tt.input)

			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, "Please provide name, email, and password", vErr.Message)
			assert.Empty(t, store.users, "no user may be created on validation failure")
		})
	}
}

func TestRegister_Success(t *testing.T) {
	store := newFakeUserStore()
	svc := newTestService(store, nil, nil)

	user, token, err := svc.Register(context.Background(), RegisterInput{
		Name:     "Alice",
		Email:    "alice@example.com",
		Password: "hunter22",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, user.ID)
	assert.Equal(t, defaultAvatar, user.Avatar)
	assert.NotEqual(t, "hunter22", user.Password, "password must be stored hashed")
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("hunter22")))

	claims, err := NewTokenManager("test-secret", time.Hour).ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	store := newFakeUserStore()
	svc := newTestService(store, nil, nil)
	registered(t, svc, "alice@example.com")

	_, _, err := svc.Register(context.Background(), RegisterInput{
		Name:     "Imposter",
		Email:    "alice@example.com",
		Password: "hunter22",
	})
	assert.ErrorIs(t, err, database.ErrEmailTaken)
	assert.Len(t, store.users, 1, "store must be unchanged")
}

func TestRegister_AvatarUploadFailureIsNonFatal(t *testing.T) {
	store := newFakeUserStore()
	uploader := new(mockUploader)
	uploader.On("UploadAvatar", mock.Anything, mock.Anything).
		Return(models.Avatar{}, errors.New("media host down"))
	svc := newTestService(store, uploader, nil)

	user, token, err := svc.Register(context.Background(), RegisterInput{
		Name:     "Bob",
		Email:    "bob@example.com",
		Password: "hunter22",
		Avatar:   media.Source{RemoteURL: "https://example.com/me.png"},
	})
	require.NoError(t, err, "upload failure must not fail registration")
	assert.Equal(t, defaultAvatar, user.Avatar)
	assert.NotEmpty(t, token)
	uploader.AssertNumberOfCalls(t, "UploadAvatar", 1)
}

func TestRegister_AvatarUploaded(t *testing.T) {
	store := newFakeUserStore()
	uploaded := models.Avatar{PublicID: "avatars/abc.png", URL: "https://cdn.example.com/avatars/abc.png"}
	uploader := new(mockUploader)
	uploader.On("UploadAvatar", mock.Anything, mock.Anything).Return(uploaded, nil)
	svc := newTestService(store, uploader, nil)

	user, _, err := svc.Register(context.Background(), RegisterInput{
		Name:     "Carol",
		Email:    "carol@example.com",
		Password: "hunter22",
		Avatar:   media.Source{RemoteURL: "https://example.com/me.png"},
	})
	require.NoError(t, err)
	assert.Equal(t, uploaded, user.Avatar)
}

func TestLogin(t *testing.T) {
	store := newFakeUserStore()
	svc := newTestService(store, nil, nil)
	user := registered(t, svc, "alice@example.com")

	t.Run("correct credentials", func(t *testing.T) {
		got, token, err := svc.Login(context.Background(), "alice@example.com", "hunter22")
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)

		claims, err := NewTokenManager("test-secret", time.Hour).ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, user.ID, claims.UserID)
	})

	t.Run("wrong password and unknown email collapse to one error", func(t *testing.T) {
		_, _, wrongPass := svc.Login(context.Background(), "alice@example.com", "not-it")
		_, _, unknown := svc.Login(context.Background(), "nobody@example.com", "hunter22")

		assert.ErrorIs(t, wrongPass, ErrInvalidCredentials)
		assert.ErrorIs(t, unknown, ErrInvalidCredentials)
		assert.Equal(t, wrongPass.Error(), unknown.Error())
	})

	t.Run("missing fields", func(t *testing.T) {
		_, _, err := svc.Login(context.Background(), "", "")
		var vErr *ValidationError
		assert.ErrorAs(t, err, &vErr)
	})
}

func TestForgotPassword_UnknownEmail(t *testing.T) {
	store := newFakeUserStore()
	mailer := new(mockMailer)
	svc := newTestService(store, nil, mailer)

	_, err := svc.ForgotPassword(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, database.ErrUserNotFound)
	mailer.AssertNotCalled(t, "Send")
}

func TestForgotPassword_SendsResetURL(t *testing.T) {
	store := newFakeUserStore()
	mailer := new(mockMailer)
	var sent mail.Message
	mailer.On("Send", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(1).(mail.Message) }).
		Return(nil)
	svc := newTestService(store, nil, mailer)
	registered(t, svc, "alice@example.com")

	msg, err := svc.ForgotPassword(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Email sent to: alice@example.com", msg)

	assert.Equal(t, "alice@example.com", sent.To)
	assert.Contains(t, sent.Body, "http://localhost:5173/password/reset/")

	// Stored hash is derived from the emailed plaintext token.
	stored, err := store.GetByEmail("alice@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, stored.ResetPasswordToken)
	assert.NotContains(t, sent.Body, stored.ResetPasswordToken, "hash itself must not be emailed")
	assert.True(t, stored.HasActiveReset(time.Now()))
}

func TestForgotPassword_MailFailureRollsBack(t *testing.T) {
	store := newFakeUserStore()
	mailer := new(mockMailer)
	mailer.On("Send", mock.Anything, mock.Anything).Return(errors.New("smtp down"))
	svc := newTestService(store, nil, mailer)
	registered(t, svc, "alice@example.com")

	_, err := svc.ForgotPassword(context.Background(), "alice@example.com")
	require.Error(t, err)

	stored, err := store.GetByEmail("alice@example.com")
	require.NoError(t, err)
	assert.Empty(t, stored.ResetPasswordToken, "reset token must be cleared after send failure")
	assert.True(t, stored.ResetPasswordExpires.IsZero())
}

func TestForgotPassword_SecondTokenInvalidatesFirst(t *testing.T) {
	store := newFakeUserStore()
	mailer := new(mockMailer)
	var bodies []string
	mailer.On("Send", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { bodies = append(bodies, args.Get(1).(mail.Message).Body) }).
		Return(nil)
	svc := newTestService(store, nil, mailer)
	registered(t, svc, "alice@example.com")

	_, err := svc.ForgotPassword(context.Background(), "alice@example.com")
	require.NoError(t, err)
	_, err = svc.ForgotPassword(context.Background(), "alice@example.com")
	require.NoError(t, err)
	require.Len(t, bodies, 2)

	first := extractResetToken(t, bodies[0])
	second := extractResetToken(t, bodies[1])
	require.NotEqual(t, first, second)

	_, _, err = svc.ResetPassword(context.Background(), first, "newpass99", "newpass99")
	assert.ErrorIs(t, err, database.ErrNoActiveReset, "first token must be invalidated")

	_, _, err = svc.ResetPassword(context.Background(), second, "newpass99", "newpass99")
	assert.NoError(t, err)
}

func TestResetPassword(t *testing.T) {
	store := newFakeUserStore()
	mailer := new(mockMailer)
	var body string
	mailer.On("Send", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { body = args.Get(1).(mail.Message).Body }).
		Return(nil)
	svc := newTestService(store, nil, mailer)
	user := registered(t, svc, "alice@example.com")

	_, err := svc.ForgotPassword(context.Background(), "alice@example.com")
	require.NoError(t, err)
	token := extractResetToken(t, body)

	t.Run("mismatched confirmation", func(t *testing.T) {
		_, _, err := svc.ResetPassword(context.Background(), token, "newpass99", "other")
		var vErr *ValidationError
		assert.ErrorAs(t, err, &vErr)
	})

	t.Run("bogus token", func(t *testing.T) {
		_, _, err := svc.ResetPassword(context.Background(), "deadbeef", "newpass99", "newpass99")
		assert.ErrorIs(t, err, database.ErrNoActiveReset)
	})

	t.Run("success consumes the token", func(t *testing.T) {
		got, sessionToken, err := svc.ResetPassword(context.Background(), token, "newpass99", "newpass99")
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
		assert.NotEmpty(t, sessionToken)

		// New password works, old one does not.
		_, _, err = svc.Login(context.Background(), "alice@example.com", "newpass99")
		assert.NoError(t, err)
		_, _, err = svc.Login(context.Background(), "alice@example.com", "hunter22")
		assert.ErrorIs(t, err, ErrInvalidCredentials)

		// Token is single-use.
		_, _, err = svc.ResetPassword(context.Background(), token, "again1234", "again1234")
		assert.ErrorIs(t, err, database.ErrNoActiveReset)
	})
}

// extractResetToken pulls the plaintext token out of a reset email body.
func extractResetToken(t *testing.T, body string) string {
	t.Helper()
	const marker = "/password/reset/"
	idx := len(body)
	for i := 0; i+len(marker) <= len(body); i++ {
		if body[i:i+len(marker)] == marker {
			idx = i + len(marker)
			break
		}
	}
	require.Less(t, idx, len(body), "reset URL not found in body")
	end := idx
	for end < len(body) && body[end] != '\n' && body[end] != ' ' {
		end++
	}
	return body[idx:end]
}
