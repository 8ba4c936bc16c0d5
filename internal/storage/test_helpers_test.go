package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/magabrotheeeer/user-service/internal/migrations"
	"github.com/magabrotheeeer/user-service/internal/models"
)

// TestDataFactory содержит методы для создания тестовых данных
type TestDataFactory struct {
	storage *Storage
}

// NewTestDataFactory создает новую фабрику тестовых данных
func NewTestDataFactory(storage *Storage) *TestDataFactory {
	return &TestDataFactory{storage: storage}
}

// CreateUser создает тестового пользователя
func (f *TestDataFactory) CreateUser(t *testing.T, name, email, role string) *models.User {
	t.Helper()
	u, err := f.storage.CreateUser(context.Background(), models.NewUser{
		Name:         name,
		Email:        email,
		PasswordHash: "$2a$10$hashedpassword",
		Role:         role,
	})
	require.NoError(t, err)
	return u
}

// TestVerification содержит общие функции для проверки результатов тестов
type TestVerification struct {
	storage *Storage
}

// NewTestVerification создает новый объект для проверки результатов
func NewTestVerification(storage *Storage) *TestVerification {
	return &TestVerification{storage: storage}
}

// VerifyRowRetained проверяет, что строка осталась в таблице и помечена удалённой
func (v *TestVerification) VerifyRowRetained(t *testing.T, id string) {
	t.Helper()
	var deleted bool
	err := v.storage.DB.QueryRow("SELECT is_deleted FROM users WHERE id = $1", id).Scan(&deleted)
	require.NoError(t, err)
	require.True(t, deleted)
}

// VerifyVersion проверяет счётчик версий пользователя
func (v *TestVerification) VerifyVersion(t *testing.T, id string, expected int) {
	t.Helper()
	var version int
	err := v.storage.DB.QueryRow("SELECT version FROM users WHERE id = $1", id).Scan(&version)
	require.NoError(t, err)
	require.Equal(t, expected, version)
}

// setupTestDatabase поднимает PostgreSQL в контейнере и накатывает миграции
func setupTestDatabase(t *testing.T) *Storage {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		postgres.BasicWaitStrategies(),
	)
	require.NoError(t, err, "failed to start container")

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	storage, err := New(connStr)
	require.NoError(t, err, "failed to create storage")

	migrationsPath, err := filepath.Abs(filepath.Join("..", "..", "migrations"))
	require.NoError(t, err)
	require.NoError(t, migrations.Run(storage.DB, migrationsPath), "failed to apply migrations")

	t.Cleanup(func() {
		_ = storage.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	return storage
}
