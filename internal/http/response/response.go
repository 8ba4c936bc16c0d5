// Package response содержит вспомогательные функции для формирования
// JSON-ответов HTTP-обработчиков и единый форматтер ошибок.
//
// Обработчики не пишут тела ошибок сами: любая ошибка передается в Fail,
// который выбирает статус по apperr.Error, а остальные ошибки отдает как 500.
package response

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/user-service/internal/lib/apperr"
	"github.com/magabrotheeeer/user-service/internal/lib/sl"
)

const (
	// StatusFail значение статуса для ошибок клиента (4xx).
	StatusFail = "fail"
	// StatusError значение статуса для внутренних ошибок (5xx).
	StatusError = "error"

	// MsgInternal сообщение, которое клиент видит при внутренней ошибке.
	MsgInternal = "Something went wrong"
	// MsgInvalidBody тело запроса не является корректным JSON.
	MsgInvalidBody = "Invalid request body"
	// MsgBodyTooLarge тело запроса превышает лимит.
	MsgBodyTooLarge = "Request body too large"
)

// ErrorResponse тело ответа с ошибкой.
// Используется в аннотациях @Failure как возвращаемый тип ошибки.
type ErrorResponse struct {
	Status     string `json:"status" example:"fail"`
	Message    string `json:"message" example:"User not found"`
	StatusCode int    `json:"statusCode" example:"404"`
}

// MessageResponse тело успешного ответа с сообщением.
type MessageResponse struct {
	Message string `json:"message" example:"Signup successful"`
}

// JSON пишет тело с указанным статусом.
func JSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	render.Status(r, status)
	render.JSON(w, r, body)
}

// Message пишет {"message": msg} со статусом.
func Message(w http.ResponseWriter, r *http.Request, status int, msg string) {
	JSON(w, r, status, MessageResponse{Message: msg})
}

// Fail отдает ошибку клиенту в едином формате и пишет ее в лог.
// Подробности внутренних ошибок попадают только в лог.
func Fail(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	log = log.With(slog.String("request_id", middleware.GetReqID(r.Context())))

	appErr, ok := apperr.As(err)
	if !ok {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			appErr, ok = apperr.New(MsgBodyTooLarge, http.StatusRequestEntityTooLarge), true
		}
	}

	if !ok || !appErr.IsClientError() {
		log.Error("request failed", sl.Err(err))
		code := http.StatusInternalServerError
		if ok {
			code = appErr.StatusCode
		}
		JSON(w, r, code, ErrorResponse{Status: StatusError, Message: MsgInternal, StatusCode: code})
		return
	}

	log.Info("request rejected", slog.Int("status", appErr.StatusCode), sl.Err(err))
	JSON(w, r, appErr.StatusCode, ErrorResponse{
		Status:     StatusFail,
		Message:    appErr.Message,
		StatusCode: appErr.StatusCode,
	})
}

// Decode читает JSON из тела и проверяет его теги validate.
// Ошибки возвращаются уже в виде apperr.Error, кроме превышения лимита тела.
func Decode(r *http.Request, validate *validator.Validate, dst any) error {
	if err := DecodeJSON(r.Body, dst); err != nil {
		return err
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return apperr.BadRequest(ValidationError(verrs))
		}
		return err
	}
	return nil
}

// DecodeJSON читает JSON из body в dst без валидации.
// Превышение лимита тела возвращается как есть, прочие ошибки разбора
// становятся BadRequest.
func DecodeJSON(body io.Reader, dst any) error {
	if err := render.DecodeJSON(body, dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return err
		}
		return apperr.BadRequest(MsgInvalidBody).Wrap(err)
	}
	return nil
}

// ValidationError формирует сообщение из ошибок валидации.
// Каждое нарушение превращается в человеко-читаемый текст, объединенный через запятую.
func ValidationError(errs validator.ValidationErrors) string {
	var errsMsgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "email":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be a valid email", err.Field()))
		case "min":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be at least %s characters long", err.Field(), err.Param()))
		case "oneof":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be one of: %s", err.Field(), err.Param()))
		default:
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is not a valid", err.Field()))
		}
	}
	return strings.Join(errsMsgs, ", ")
}
