// Package recovery turns handler panics into 500 responses.
package recovery

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"corpdash/internal/log"
)

// Middleware recovers panics, logs them with the stack and, when nothing has
// been written yet, calls onPanic to render the error page.
func Middleware(onPanic func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				log.FromContext(r.Context()).ErrorContext(r.Context(), "Handler panic recovered",
					log.FieldError, fmt.Sprint(rec),
					log.FieldPath, r.URL.Path,
					"stack", string(debug.Stack()))

				if onPanic != nil {
					onPanic(w, r)
					return
				}
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
