package middleware

import (
	"mime"
	"net/http"

	"github.com/JLTC3111/Quyenhair/pkg/httputil"
)

// RequireJSON rejects requests that send a body with a media type other than
// application/json.
func RequireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
		default:
			next.ServeHTTP(w, r)
			return
		}
		if r.ContentLength == 0 && r.Header.Get("Content-Type") == "" {
			next.ServeHTTP(w, r)
			return
		}

		mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil || mediaType != "application/json" {
			httputil.WriteJSON(w, http.StatusUnsupportedMediaType, httputil.Response{
				Message: "content type must be application/json",
				Code:    "UNSUPPORTED_MEDIA_TYPE",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
