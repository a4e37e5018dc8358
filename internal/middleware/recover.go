package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog"
)

func Recover(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					// Recover стоит снаружи RequestID: id уже в заголовке ответа, но не в r
					rid := GetRequestID(r)
					if rid == "" {
						rid = w.Header().Get("X-Request-ID")
					}
					logger.Error().
						Str("rid", rid).
						Str("path", r.URL.Path).
						Interface("panic", rec).
						Bytes("stack", debug.Stack()).
						Msg("panic")
					w.Header().Set("Content-Type", "application/json; charset=utf-8")
					w.WriteHeader(http.StatusInternalServerError)
					_, _ = w.Write([]byte(`{"error":"internal","rid":"` + rid + `"}`))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
