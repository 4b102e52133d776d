package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/aditya/go-boleia/internal/logger"
	"github.com/aditya/go-boleia/pkg/utils"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	IdempotencyHeader = "Idempotency-Key"
	idempotencyPrefix = "idempotency:"
	lockTTL           = 30 * time.Second
)

// IdempotencyMiddleware replays the stored response for a repeated
// Idempotency-Key. It is a fast path in front of the booking service, which
// enforces the same key in the database.
type IdempotencyMiddleware struct {
	redis *redis.Client
	ttl   time.Duration
}

type cachedResponse struct {
	StatusCode  int    `json:"status_code"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
	BodyHash    string `json:"body_hash"`
}

func NewIdempotencyMiddleware(redisClient *redis.Client, ttl time.Duration) *IdempotencyMiddleware {
	return &IdempotencyMiddleware{redis: redisClient, ttl: ttl}
}

// recorder captures the response for caching
type recorder struct {
	http.ResponseWriter
	statusCode int
	body       bytes.Buffer
}

func (rw *recorder) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *recorder) Write(b []byte) (int, error) {
	rw.body.Write(b)
	return rw.ResponseWriter.Write(b)
}

func (m *IdempotencyMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(IdempotencyHeader)
		if key == "" || (r.Method != http.MethodPost && r.Method != http.MethodPatch) {
			next.ServeHTTP(w, r)
			return
		}

		bodyBytes, err := io.ReadAll(r.Body)
		if err != nil {
			utils.BadRequest(w, "failed to read request body")
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(bodyBytes))

		ctx := r.Context()
		bodyHash := hashRequest(r.Method, r.URL.Path, bodyBytes)
		cacheKey := idempotencyPrefix + key

		cached, err := m.lookup(ctx, cacheKey)
		switch {
		case err == nil:
			if cached.BodyHash != bodyHash {
				utils.JSON(w, http.StatusConflict, utils.ErrorBody{
					Error:   "idempotency_conflict",
					Message: "idempotency key already used with different request",
				})
				return
			}
			w.Header().Set("Content-Type", cached.ContentType)
			w.Header().Set("Idempotent-Replayed", "true")
			w.WriteHeader(cached.StatusCode)
			w.Write(cached.Body)
			return
		case !errors.Is(err, redis.Nil):
			// Fall through to the handler; the database still dedupes.
			logger.WarnContext(ctx, "idempotency cache unavailable", zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}

		lockKey := cacheKey + ":lock"
		locked, err := m.redis.SetNX(ctx, lockKey, "1", lockTTL).Result()
		if err != nil {
			logger.WarnContext(ctx, "idempotency lock unavailable", zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}
		if !locked {
			utils.JSON(w, http.StatusConflict, utils.ErrorBody{
				Error:   "request_in_progress",
				Message: "a request with this idempotency key is already being processed",
			})
			return
		}
		defer m.redis.Del(context.WithoutCancel(ctx), lockKey)

		rec := &recorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rec, r)

		// Only successes are replayed; a failed attempt may be retried.
		if rec.statusCode < 200 || rec.statusCode >= 300 {
			return
		}
		data, _ := json.Marshal(cachedResponse{
			StatusCode:  rec.statusCode,
			ContentType: rec.Header().Get("Content-Type"),
			Body:        rec.body.Bytes(),
			BodyHash:    bodyHash,
		})
		if err := m.redis.Set(context.WithoutCancel(ctx), cacheKey, data, m.ttl).Err(); err != nil {
			logger.WarnContext(ctx, "idempotency cache write failed", zap.Error(err))
		}
	})
}

func (m *IdempotencyMiddleware) lookup(ctx context.Context, key string) (*cachedResponse, error) {
	data, err := m.redis.Get(ctx, key).Bytes()
	if err != nil {
		return nil, err
	}

	var cached cachedResponse
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, err
	}

	return &cached, nil
}

// hashRequest binds a key to one endpoint and payload.
func hashRequest(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method + " " + path + "\n"))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}
