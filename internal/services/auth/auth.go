// Package auth содержит логику бизнес-уровня для регистрации, входа,
// проверки сессии и смены пароля пользователей.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/user-service/internal/lib/apperr"
	"github.com/magabrotheeeer/user-service/internal/lib/jwt"
	"github.com/magabrotheeeer/user-service/internal/lib/password"
	"github.com/magabrotheeeer/user-service/internal/lib/resettoken"
	"github.com/magabrotheeeer/user-service/internal/lib/sl"
	"github.com/magabrotheeeer/user-service/internal/models"
	"github.com/magabrotheeeer/user-service/internal/storage"
)

// Сообщения ошибок, которые видит клиент.
const (
	MsgUserExists       = "User already exists"
	MsgUserNotFound     = "User not found"
	MsgInvalidPassword  = "Invalid password"
	MsgNotLoggedIn      = "You are not logged in"
	MsgInvalidToken     = "Invalid or expired token"
	MsgPasswordChanged  = "User recently changed password"
	MsgResetInvalid     = "Token is invalid or has expired"
	MsgInvalidEmail     = "Please provide a valid email"
	MsgInvalidRole      = "Role must be either user or admin"
	MsgPasswordTooShort = "Password must be at least 6 characters long"
	MsgPasswordTooLong  = "Password must be at most 72 bytes long"
	MsgNameRequired     = "Please provide your name"
)

// passwordChangeSkew сдвигает время смены пароля назад, чтобы токен,
// выпущенный сразу после смены, не считался устаревшим.
const passwordChangeSkew = time.Second

// UserRepository описывает контракт для работы с пользователями в базе данных.
type UserRepository interface {
	CreateUser(ctx context.Context, user models.NewUser) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByResetToken(ctx context.Context, tokenHash string, now time.Time) (*models.User, error)
	SetPasswordResetToken(ctx context.Context, id, tokenHash string, expires time.Time) error
	UpdatePassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error
}

// UserCache кэш профилей пользователей.
type UserCache interface {
	GetUser(ctx context.Context, id string) (*models.User, bool, error)
	SetUser(ctx context.Context, u *models.User) error
	InvalidateUser(ctx context.Context, id string) error
}

// Mailer отправляет письмо со ссылкой сброса пароля.
type Mailer interface {
	SendPasswordReset(to, resetURL string) error
}

// SignupInput данные регистрации.
type SignupInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// AuthService отвечает за регистрацию, авторизацию и валидацию сессии.
type AuthService struct {
	log      *slog.Logger
	users    UserRepository
	cache    UserCache
	jwtMaker jwt.Maker
	mailer   Mailer
	resetURL string
	now      func() time.Time
}

// NewAuthService создает новый экземпляр AuthService.
// resetURL адрес страницы фронтенда, к которому дописывается токен сброса.
func NewAuthService(log *slog.Logger, users UserRepository, cache UserCache, jwtMaker jwt.Maker,
	mailer Mailer, resetURL string) *AuthService {
	return &AuthService{
		log:      log,
		users:    users,
		cache:    cache,
		jwtMaker: jwtMaker,
		mailer:   mailer,
		resetURL: strings.TrimRight(resetURL, "/"),
		now:      time.Now,
	}
}

// Signup создает нового пользователя с хэшированием пароля. Роль по умолчанию "user".
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	const op = "services.auth.Signup"

	name := models.NormalizeName(in.Name)
	email := models.NormalizeEmail(in.Email)
	role := in.Role
	if role == "" {
		role = models.RoleUser
	}

	switch {
	case name == "":
		return nil, apperr.BadRequest(MsgNameRequired)
	case !models.ValidEmail(email):
		return nil, apperr.BadRequest(MsgInvalidEmail)
	case !models.ValidRole(role):
		return nil, apperr.BadRequest(MsgInvalidRole)
	case len(in.Password) < models.MinPasswordLength:
		return nil, apperr.BadRequest(MsgPasswordTooShort)
	case len(in.Password) > models.MaxPasswordLength:
		return nil, apperr.BadRequest(MsgPasswordTooLong)
	}

	_, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, apperr.Conflict(MsgUserExists)
	case !errors.Is(err, storage.ErrUserNotFound):
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	hashed, err := password.GetHash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.users.CreateUser(ctx, models.NewUser{
		Name:         name,
		Email:        email,
		PasswordHash: hashed,
		Role:         role,
	})
	if errors.Is(err, storage.ErrUserExists) {
		return nil, apperr.Conflict(MsgUserExists).Wrap(err)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// Login проверяет пароль пользователя и выпускает сессионный JWT.
func (s *AuthService) Login(ctx context.Context, email, rawPassword string) (string, error) {
	const op = "services.auth.Login"

	user, err := s.users.GetUserByEmail(ctx, models.NormalizeEmail(email))
	if errors.Is(err, storage.ErrUserNotFound) {
		return "", apperr.NotFound(MsgUserNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if err := s.checkPassword(user.PasswordHash, rawPassword); err != nil {
		return "", err
	}

	token, err := s.jwtMaker.GenerateToken(user.ID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return token, nil
}

// Authenticate проверяет сессионный токен и возвращает его владельца.
// Токен, выпущенный раньше последней смены пароля, отклоняется.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	const op = "services.auth.Authenticate"

	if token == "" {
		return nil, apperr.Unauthorized(MsgNotLoggedIn)
	}

	claims, err := s.jwtMaker.ParseToken(token)
	if err != nil {
		return nil, apperr.Unauthorized(MsgInvalidToken).Wrap(err)
	}

	user, err := s.loadUser(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if user.ChangedPasswordAfter(claims.IssuedAt.Time) {
		return nil, apperr.Unauthorized(MsgPasswordChanged)
	}
	return user, nil
}

// ForgotPassword выпускает токен сброса, сохраняет его хэш и отправляет ссылку на почту.
// Возвращает открытый токен; в ответ клиенту он попадает только в тестовом режиме.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (string, error) {
	const op = "services.auth.ForgotPassword"

	user, err := s.users.GetUserByEmail(ctx, models.NormalizeEmail(email))
	if errors.Is(err, storage.ErrUserNotFound) {
		return "", apperr.NotFound(MsgUserNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	plain, hash, err := resettoken.Generate()
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if err := s.users.SetPasswordResetToken(ctx, user.ID, hash, s.now().Add(resettoken.TTL)); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if err := s.mailer.SendPasswordReset(user.Email, s.resetURL+"/"+plain); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return plain, nil
}

// ResetPassword устанавливает новый пароль по действующему токену сброса.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	const op = "services.auth.ResetPassword"

	user, err := s.users.GetUserByResetToken(ctx, resettoken.Hash(token), s.now())
	if errors.Is(err, storage.ErrUserNotFound) {
		return apperr.BadRequest(MsgResetInvalid)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.setPassword(ctx, user.ID, newPassword); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// UpdatePassword меняет пароль вошедшего пользователя после проверки текущего.
func (s *AuthService) UpdatePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	const op = "services.auth.UpdatePassword"

	user, err := s.users.GetUserByID(ctx, userID)
	if errors.Is(err, storage.ErrUserNotFound) {
		return apperr.NotFound(MsgUserNotFound)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.checkPassword(user.PasswordHash, currentPassword); err != nil {
		return err
	}

	if err := s.setPassword(ctx, user.ID, newPassword); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *AuthService) checkPassword(hash, raw string) error {
	err := password.CompareHash(hash, raw)
	if errors.Is(err, password.ErrMismatch) {
		return apperr.Unauthorized(MsgInvalidPassword)
	}
	return err
}

func (s *AuthService) setPassword(ctx context.Context, id, newPassword string) error {
	if len(newPassword) < models.MinPasswordLength {
		return apperr.BadRequest(MsgPasswordTooShort)
	}
	if len(newPassword) > models.MaxPasswordLength {
		return apperr.BadRequest(MsgPasswordTooLong)
	}
	hashed, err := password.GetHash(newPassword)
	if err != nil {
		return err
	}
	err = s.users.UpdatePassword(ctx, id, hashed, s.now().Add(-passwordChangeSkew))
	if errors.Is(err, storage.ErrUserNotFound) {
		return apperr.NotFound(MsgUserNotFound)
	}
	if err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *AuthService) loadUser(ctx context.Context, id string) (*models.User, error) {
	if user, found, err := s.cache.GetUser(ctx, id); err != nil {
		s.log.Warn("user cache read failed", slog.String("user_id", id), sl.Err(err))
	} else if found {
		return user, nil
	}

	user, err := s.users.GetUserByID(ctx, id)
	if errors.Is(err, storage.ErrUserNotFound) {
		return nil, apperr.NotFound(MsgUserNotFound)
	}
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetUser(ctx, user); err != nil {
		s.log.Warn("user cache write failed", slog.String("user_id", id), sl.Err(err))
	}
	return user, nil
}

func (s *AuthService) invalidate(ctx context.Context, id string) {
	if err := s.cache.InvalidateUser(ctx, id); err != nil {
		s.log.Warn("user cache invalidation failed", slog.String("user_id", id), sl.Err(err))
	}
}
