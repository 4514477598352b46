package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	apperrors "github.com/JLTC3111/Quyenhair/pkg/errors"
	"github.com/JLTC3111/Quyenhair/pkg/httputil"
	"github.com/JLTC3111/Quyenhair/pkg/logger"
)

// Recovery converts a handler panic into the standard 500 envelope.
// http.ErrAbortHandler is re-raised so net/http can drop the connection.
func Recovery(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				p := recover()
				switch p {
				case nil:
					return
				case http.ErrAbortHandler:
					panic(p)
				}
				l.ErrorContext(r.Context(), "panic recovered",
					slog.String("route", r.Method+" "+r.URL.Path),
					slog.Any("panic", p),
					slog.String("stack", string(debug.Stack())),
				)
				e := apperrors.Internal(nil)
				httputil.WriteJSON(w, e.Status, httputil.Response{
					Message:   e.Message,
					Code:      e.Code,
					RequestID: logger.CorrelationIDFromContext(r.Context()),
				})
			}()
			next.ServeHTTP(w, r)
		})
	}
}
