package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"
	apperrors "tripmarket/pkg/errors"
	httputil "tripmarket/pkg/http"
)

// deadlineWriter guards the real writer so that exactly one of the handler
// and the timeout path gets to answer.
type deadlineWriter struct {
	http.ResponseWriter
	mu       sync.Mutex
	expired  bool
	answered bool
}

func (dw *deadlineWriter) WriteHeader(code int) {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	if dw.expired || dw.answered {
		return
	}
	dw.answered = true
	dw.ResponseWriter.WriteHeader(code)
}

func (dw *deadlineWriter) Write(b []byte) (int, error) {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	if dw.expired {
		return 0, http.ErrHandlerTimeout
	}
	dw.answered = true
	return dw.ResponseWriter.Write(b)
}

// expire reports whether the caller may still write the timeout response.
func (dw *deadlineWriter) expire() bool {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	dw.expired = true
	return !dw.answered
}

// RequestTimeout cancels the request context after timeout and answers 504
// unless the handler already started its response. Panics in the handler
// are re-raised on the serving goroutine so Recovery sees them.
func RequestTimeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if timeout <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			dw := &deadlineWriter{ResponseWriter: w}
			finished := make(chan any, 1)
			go func() {
				defer func() {
					finished <- recover()
				}()
				next.ServeHTTP(dw, r.WithContext(ctx))
			}()

			select {
			case p := <-finished:
				if p != nil {
					panic(p)
				}
			case <-ctx.Done():
				if dw.expire() {
					_ = httputil.WriteError(w, apperrors.Timeout("Request timeout"))
				}
			}
		})
	}
}
