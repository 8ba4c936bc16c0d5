package middlewarectx

import (
	"net/http"
)

// BodyLimit ограничивает размер тела запроса. Чтение сверх лимита возвращает
// *http.MaxBytesError, который форматтер ошибок отдает как 413.
func BodyLimit(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil && limit > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}
