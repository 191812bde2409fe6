package middleware

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"sync"
	"time"
	apperrors "tripmarket/pkg/errors"
	httputil "tripmarket/pkg/http"

	"github.com/karlseguin/ccache/v3"
)

// reservationTTL bounds how long an in-flight request holds its key.
const reservationTTL = 30 * time.Second

// IdempotencyStore remembers successful responses per key. Reserve guards
// against two concurrent requests with the same key both running.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (*CachedResponse, bool)
	Reserve(ctx context.Context, key string) bool
	Set(ctx context.Context, key string, response *CachedResponse)
	Release(ctx context.Context, key string)
	Stop()
}

type CachedResponse struct {
	StatusCode int         `json:"status_code"`
	Headers    http.Header `json:"headers"`
	Body       []byte      `json:"body"`
	CreatedAt  time.Time   `json:"created_at"`
}

// InMemoryIdempotencyStore is the single-replica store. A nil response in
// the cache marks a reservation.
type InMemoryIdempotencyStore struct {
	mu    sync.Mutex
	cache *ccache.Cache[*CachedResponse]
	ttl   time.Duration
}

func NewInMemoryIdempotencyStore(ttl time.Duration) *InMemoryIdempotencyStore {
	return &InMemoryIdempotencyStore{
		cache: ccache.New(ccache.Configure[*CachedResponse]().MaxSize(100000)),
		ttl:   ttl,
	}
}

func (s *InMemoryIdempotencyStore) Get(_ context.Context, key string) (*CachedResponse, bool) {
	item := s.cache.Get(key)
	if item == nil || item.Expired() || item.Value() == nil {
		return nil, false
	}
	return item.Value(), true
}

func (s *InMemoryIdempotencyStore) Reserve(_ context.Context, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item := s.cache.Get(key); item != nil && !item.Expired() {
		return false
	}
	s.cache.Set(key, nil, reservationTTL)
	return true
}

func (s *InMemoryIdempotencyStore) Set(_ context.Context, key string, response *CachedResponse) {
	response.CreatedAt = time.Now()
	s.cache.Set(key, response, s.ttl)
}

func (s *InMemoryIdempotencyStore) Release(_ context.Context, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item := s.cache.Get(key); item != nil && item.Value() == nil {
		s.cache.Delete(key)
	}
}

func (s *InMemoryIdempotencyStore) Stop() {
	s.cache.Stop()
}

type responseCapture struct {
	http.ResponseWriter
	statusCode int
	body       bytes.Buffer
}

func (rc *responseCapture) WriteHeader(statusCode int) {
	rc.statusCode = statusCode
	rc.ResponseWriter.WriteHeader(statusCode)
}

func (rc *responseCapture) Write(b []byte) (int, error) {
	rc.body.Write(b)
	return rc.ResponseWriter.Write(b)
}

// Idempotency replays the stored response for a repeated POST carrying the
// same key. Only 2xx responses are stored; failures may be retried.
func Idempotency(store IdempotencyStore, headerName string) func(http.Handler) http.Handler {
	if headerName == "" {
		headerName = "Idempotency-Key"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := extractIdempotencyKey(r, headerName)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			if cached, found := store.Get(ctx, key); found {
				replayCachedResponse(w, cached)
				return
			}

			if !store.Reserve(ctx, key) {
				_ = httputil.WriteError(w, apperrors.Conflict("A request with this idempotency key is already in progress"))
				return
			}

			capture := &responseCapture{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(capture, r)

			if capture.statusCode < 200 || capture.statusCode >= 300 {
				store.Release(context.WithoutCancel(ctx), key)
				return
			}
			store.Set(context.WithoutCancel(ctx), key, &CachedResponse{
				StatusCode: capture.statusCode,
				Headers:    w.Header().Clone(),
				Body:       capture.body.Bytes(),
			})
		})
	}
}

// extractIdempotencyKey scopes the client key to the caller and route, so two
// riders reusing a key never see each other's responses.
func extractIdempotencyKey(r *http.Request, headerName string) string {
	key := strings.TrimSpace(r.Header.Get(headerName))
	if key == "" || r.Method != http.MethodPost {
		return ""
	}
	return strings.Join([]string{RiderIDFromContext(r.Context()), r.URL.Path, key}, "|")
}

func replayCachedResponse(w http.ResponseWriter, cached *CachedResponse) {
	for key, values := range cached.Headers {
		if key == RequestIDHeader {
			continue
		}
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(cached.StatusCode)
	_, _ = w.Write(cached.Body)
}
