// Package apperr описывает прикладную ошибку с HTTP-статусом.
//
// Error проходит через сервисы и обработчики без изменений и
// превращается в JSON-ответ единым форматтером в пакете response.
// Любая другая ошибка считается внутренней и отдаётся клиенту как 500.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error прикладная ошибка: сообщение для клиента и HTTP-статус.
type Error struct {
	Message    string
	StatusCode int
	cause      error
}

// New создаёт ошибку с произвольным статусом.
func New(message string, statusCode int) *Error {
	return &Error{Message: message, StatusCode: statusCode}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap возвращает исходную причину, если она была передана через Wrap.
func (e *Error) Unwrap() error {
	return e.cause
}

// Wrap прикрепляет к ошибке причину для логов. Клиент видит только Message.
func (e *Error) Wrap(cause error) *Error {
	return &Error{Message: e.Message, StatusCode: e.StatusCode, cause: cause}
}

// IsClientError сообщает, относится ли статус к диапазону 4xx.
func (e *Error) IsClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// NotFound запись или маршрут не найдены.
func NotFound(message string) *Error {
	return New(message, http.StatusNotFound)
}

// Conflict запись уже существует. Отдаётся со статусом 400.
func Conflict(message string) *Error {
	return New(message, http.StatusBadRequest)
}

// Unauthorized нет учётных данных, они неверны или сессия устарела.
func Unauthorized(message string) *Error {
	return New(message, http.StatusUnauthorized)
}

// Forbidden роль пользователя не допускается к маршруту.
func Forbidden(message string) *Error {
	return New(message, http.StatusForbidden)
}

// BadRequest некорректные входные данные.
func BadRequest(message string) *Error {
	return New(message, http.StatusBadRequest)
}

// As извлекает *Error из цепочки ошибок.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
