// Package storage реализует хранилище пользователей на основе PostgreSQL.
// Все чтения исключают мягко удалённые записи, каждая запись увеличивает version.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/magabrotheeeer/user-service/internal/lib/query"
	"github.com/magabrotheeeer/user-service/internal/models"
)

var (
	// ErrUserNotFound пользователь не найден или удалён.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists адрес почты уже занят.
	ErrUserExists = errors.New("user already exists")
)

const userColumns = `id::text, name, email, role, password_hash, password_changed_at,
	password_reset_token, password_reset_expires, is_deleted, created_at, version`

// Storage инкапсулирует соединение с базой данных PostgreSQL.
type Storage struct {
	DB *sql.DB
}

// New создаёт подключение к PostgreSQL и проверяет его.
func New(storageConnectionString string) (*Storage, error) {
	const op = "storage.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{
		DB: db,
	}, nil
}

// Ping проверяет доступность базы данных.
func (s *Storage) Ping(ctx context.Context) error {
	const op = "storage.Ping"
	if err := s.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Close закрывает пул соединений.
func (s *Storage) Close() error {
	return s.DB.Close()
}

// CreateUser сохраняет нового пользователя и возвращает его вместе с присвоенным ID.
func (s *Storage) CreateUser(ctx context.Context, user models.NewUser) (*models.User, error) {
	const op = "storage.CreateUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	q := `INSERT INTO users (name, email, password_hash, role)
		  VALUES ($1, $2, $3, $4)
		  RETURNING ` + userColumns
	u, err := scanUser(s.DB.QueryRowContext(ctx, q, user.Name, user.Email, user.PasswordHash, user.Role))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return u, nil
}

// GetUserByEmail возвращает пользователя по адресу почты.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.GetUserByEmail"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	q := `SELECT ` + userColumns + `
		  FROM users
		  WHERE email = $1 AND is_deleted = false`
	u, err := scanUser(s.DB.QueryRowContext(ctx, q, email))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return u, nil
}

// GetUserByID возвращает пользователя по ID. Некорректный UUID равносилен отсутствию.
func (s *Storage) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	const op = "storage.GetUserByID"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}

	q := `SELECT ` + userColumns + `
		  FROM users
		  WHERE id = $1 AND is_deleted = false`
	u, err := scanUser(s.DB.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return u, nil
}

// GetUserByResetToken ищет пользователя по хэшу токена сброса, срок которого ещё не истёк.
func (s *Storage) GetUserByResetToken(ctx context.Context, tokenHash string, now time.Time) (*models.User, error) {
	const op = "storage.GetUserByResetToken"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	q := `SELECT ` + userColumns + `
		  FROM users
		  WHERE password_reset_token = $1
		    AND password_reset_expires > $2
		    AND is_deleted = false`
	u, err := scanUser(s.DB.QueryRowContext(ctx, q, tokenHash, now))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return u, nil
}

// SetPasswordResetToken записывает хэш токена сброса и срок его действия.
// Остальные поля не затрагиваются и не проверяются.
func (s *Storage) SetPasswordResetToken(ctx context.Context, id, tokenHash string, expires time.Time) error {
	const op = "storage.SetPasswordResetToken"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	q := `UPDATE users
		  SET password_reset_token = $2, password_reset_expires = $3, version = version + 1
		  WHERE id = $1 AND is_deleted = false`
	return execOne(ctx, s.DB, op, q, id, tokenHash, expires)
}

// UpdatePassword записывает новый хэш пароля, время смены и сбрасывает данные сброса пароля.
func (s *Storage) UpdatePassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error {
	const op = "storage.UpdatePassword"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	q := `UPDATE users
		  SET password_hash = $2,
		      password_changed_at = $3,
		      password_reset_token = NULL,
		      password_reset_expires = NULL,
		      version = version + 1
		  WHERE id = $1 AND is_deleted = false`
	return execOne(ctx, s.DB, op, q, id, passwordHash, changedAt)
}

// UpdateProfile меняет переданные поля профиля и возвращает обновлённого пользователя.
func (s *Storage) UpdateProfile(ctx context.Context, id string, upd models.ProfileUpdate) (*models.User, error) {
	const op = "storage.UpdateProfile"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}

	q := `UPDATE users
		  SET name = COALESCE($2, name),
		      email = COALESCE($3, email),
		      version = version + 1
		  WHERE id = $1 AND is_deleted = false
		  RETURNING ` + userColumns
	u, err := scanUser(s.DB.QueryRowContext(ctx, q, id, upd.Name, upd.Email))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return u, nil
}

// SoftDeleteUser помечает пользователя удалённым. Строка остаётся в таблице.
func (s *Storage) SoftDeleteUser(ctx context.Context, id string) (*models.User, error) {
	const op = "storage.SoftDeleteUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}

	q := `UPDATE users
		  SET is_deleted = true, version = version + 1
		  WHERE id = $1 AND is_deleted = false
		  RETURNING ` + userColumns
	u, err := scanUser(s.DB.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return u, nil
}

// ListUsers выполняет выборку, построенную query.Builder, и возвращает
// строки в виде отображения "публичное имя поля" -> значение.
func (s *Storage) ListUsers(ctx context.Context, q query.Query) ([]map[string]any, error) {
	const op = "storage.ListUsers"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	sqlText, args := q.SQL(models.NotDeletedScope)
	rows, err := s.DB.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result := make([]map[string]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		row := make(map[string]any, len(columns))
		for i, name := range columns {
			row[name] = values[i]
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u         models.User
		changedAt sql.NullTime
		token     sql.NullString
		expires   sql.NullTime
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.PasswordHash, &changedAt,
		&token, &expires, &u.IsDeleted, &u.CreatedAt, &u.Version); err != nil {
		return nil, err
	}
	if changedAt.Valid {
		u.PasswordChangedAt = &changedAt.Time
	}
	if token.Valid {
		u.PasswordResetToken = &token.String
	}
	if expires.Valid {
		u.PasswordResetExpires = &expires.Time
	}
	return &u, nil
}

func execOne(ctx context.Context, db *sql.DB, op, q string, args ...any) error {
	result, err := db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err))
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	return nil
}

func mapError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrUserNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return ErrUserExists
	}
	return err
}
