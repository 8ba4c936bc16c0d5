// Package models содержит доменную модель пользователя системы,
// схему её публичных полей для построителя запросов и правила нормализации.
// Структура используется в бизнес‑логике и при работе с хранилищем.
package models

import (
	"regexp"
	"strings"
	"time"

	"github.com/magabrotheeeer/user-service/internal/lib/query"
)

// Роли пользователей.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Границы длины пароля. Верхняя в байтах: bcrypt не принимает пароли длиннее.
const (
	MinPasswordLength = 6
	MaxPasswordLength = 72
)

var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// User представляет зарегистрированного пользователя системы.
// Хэш пароля, данные сброса и признак удаления никогда не сериализуются.
type User struct {
	ID                   string     `json:"id"`
	Name                 string     `json:"name"`
	Email                string     `json:"email"`
	Role                 string     `json:"role"`
	PasswordChangedAt    *time.Time `json:"passwordChangedAt,omitempty"`
	CreatedAt            time.Time  `json:"createdAt"`
	PasswordHash         string     `json:"-"`
	PasswordResetToken   *string    `json:"-"`
	PasswordResetExpires *time.Time `json:"-"`
	IsDeleted            bool       `json:"-"`
	Version              int        `json:"-"`
}

// ChangedPasswordAfter сообщает, менялся ли пароль после выпуска токена.
// Сравнение ведётся в целых секундах, равенство изменением не считается.
func (u *User) ChangedPasswordAfter(issuedAt time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return issuedAt.Unix() < u.PasswordChangedAt.Unix()
}

// NewUser данные для создания пользователя.
type NewUser struct {
	Name         string
	Email        string
	PasswordHash string
	Role         string
}

// ProfileUpdate изменяемые поля профиля. nil означает "не менять".
type ProfileUpdate struct {
	Name  *string
	Email *string
}

// Empty сообщает, что обновлять нечего.
func (p ProfileUpdate) Empty() bool {
	return p.Name == nil && p.Email == nil
}

// NormalizeName обрезает пробелы и приводит имя к нижнему регистру.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// NormalizeEmail обрезает пробелы и приводит адрес к нижнему регистру.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail проверяет адрес после нормализации.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ValidRole проверяет, что роль входит в допустимый набор.
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAdmin
}

// UserSchema описывает публичные поля пользователя для выборок списком.
// Поля паролей, сброса и удаления в схему не входят и не могут быть
// ни отфильтрованы, ни выбраны.
var UserSchema = query.Schema{
	Table: "users",
	Fields: map[string]query.Field{
		"id":                {Column: "id", Type: "uuid", Select: "id::text", Filter: true, Sort: true},
		"name":              {Column: "name", Type: "text", Filter: true, Sort: true},
		"email":             {Column: "email", Type: "text", Filter: true, Sort: true},
		"role":              {Column: "role", Type: "text", Filter: true, Sort: true},
		"passwordChangedAt": {Column: "password_changed_at", Type: "timestamptz", Filter: true, Sort: true},
		"createdAt":         {Column: "created_at", Type: "timestamptz", Filter: true, Sort: true},
		"version":           {Column: "version", Type: "integer", Filter: true, Sort: true, Hidden: true},
	},
	Order:    []string{"id", "name", "email", "role", "passwordChangedAt", "createdAt", "version"},
	Key:      "id",
	Sequence: "seq",
}

// NotDeletedScope условие, исключающее мягко удалённых пользователей.
const NotDeletedScope = "is_deleted = false"
