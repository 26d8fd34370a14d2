package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"redlink/models"
	"redlink/utils"
)

// UserService implements registration, authentication and the password-reset
// flows. The store handles and the mailer are injected so the service carries
// no hidden globals.
type UserService struct {
	db           *gorm.DB
	resets       *utils.ResetTokenStore
	mailer       utils.Mailer
	clientOrigin string
}

// NewUserService creates a UserService.
func NewUserService(db *gorm.DB, resets *utils.ResetTokenStore, mailer utils.Mailer, clientOrigin string) *UserService {
	return &UserService{db: db, resets: resets, mailer: mailer, clientOrigin: clientOrigin}
}

// ValidateRegister applies the registration input rules, returning the first
// violated rule as a field-scoped error.
func ValidateRegister(username, email, password string) []FieldError {
	if len(username) <= 2 {
		return fieldError("username", "length must be greater than 2")
	}
	if strings.Contains(username, "@") {
		return fieldError("username", "username cannot contain an @ sign")
	}
	if len(password) <= 3 {
		return fieldError("password", "length must be greater than 3")
	}
	if !strings.Contains(email, "@") {
		return fieldError("email", "please enter a valid email")
	}
	return nil
}

// Register creates an account. Username and email are normalized to
// lowercase; uniqueness of the username is therefore case-insensitive.
func (s *UserService) Register(ctx context.Context, username, email, password string) (*models.User, []FieldError, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	email = strings.ToLower(strings.TrimSpace(email))

	if errs := ValidateRegister(username, email, password); errs != nil {
		return nil, errs, nil
	}

	var existing models.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&existing).Error
	if err == nil {
		return nil, fieldError("username", "username has already been taken"), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, err
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, nil, err
	}

	user := models.User{Username: username, Email: email, PasswordHash: hash}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, nil, err
	}
	return &user, nil, nil
}

// Login authenticates by username or, when the identifier contains an '@',
// by email. The "doesn't exist" and "incorrect password" failures are kept
// distinguishable so the client can highlight the right field.
func (s *UserService) Login(ctx context.Context, usernameOrEmail, password string) (*models.User, []FieldError, error) {
	ident := strings.ToLower(strings.TrimSpace(usernameOrEmail))
	column := "username"
	if strings.Contains(ident, "@") {
		column = "email"
	}

	var user models.User
	err := s.db.WithContext(ctx).Where(column+" = ?", ident).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fieldError("usernameOrEmail", "username doesn't exist"), nil
	}
	if err != nil {
		return nil, nil, err
	}

	if !utils.CheckPassword(user.PasswordHash, password) {
		return nil, fieldError("password", "incorrect password"), nil
	}
	return &user, nil, nil
}

// Me returns the user for an authenticated session, or nil when the account
// no longer exists.
func (s *UserService) Me(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// ForgotPassword issues a single-use reset token and mails a reset link. It
// reports success whether or not the email matched a user, so this step leaks
// nothing about account existence. Mail delivery failures are logged and
// swallowed for the same reason.
func (s *UserService) ForgotPassword(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	token := uuid.NewString()
	if err := s.resets.Save(ctx, token, user.ID); err != nil {
		return err
	}

	link := fmt.Sprintf("%s/change-password/%s", s.clientOrigin, token)
	body := fmt.Sprintf("<a href=%q>reset password</a>", link)
	if err := s.mailer.Send(user.Email, "Reset your password", body); err != nil {
		if utils.Sugar != nil {
			utils.Sugar.Warnf("reset mail to user %d failed: %v", user.ID, err)
		}
	}
	return nil
}

// ChangePassword redeems a reset token: re-hash and store the new password,
// then consume the token so it cannot be replayed.
func (s *UserService) ChangePassword(ctx context.Context, token, newPassword string) (*models.User, []FieldError, error) {
	if len(newPassword) <= 3 {
		return nil, fieldError("newPassword", "length must be greater than 3"), nil
	}

	userID, found, err := s.resets.Get(ctx, token)
	if err != nil {
		return nil, nil, err
	}
	if !found {
		return nil, fieldError("token", "token expired"), nil
	}

	var user models.User
	err = s.db.WithContext(ctx).First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fieldError("token", "user no longer exists"), nil
	}
	if err != nil {
		return nil, nil, err
	}

	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		return nil, nil, err
	}
	if err := s.db.WithContext(ctx).Model(&user).Update("password_hash", hash).Error; err != nil {
		return nil, nil, err
	}

	if err := s.resets.Delete(ctx, token); err != nil && utils.Sugar != nil {
		utils.Sugar.Warnf("failed to consume reset token: %v", err)
	}
	return &user, nil, nil
}
