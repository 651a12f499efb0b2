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
	"path"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/talentbridge/talentbridge-backend/api/responses"
	pkgerrors "github.com/talentbridge/talentbridge-backend/pkg/errors"
	"github.com/talentbridge/talentbridge-backend/pkg/logger"
	pkgredis "github.com/talentbridge/talentbridge-backend/pkg/redis"
)

const (
	defaultIdempotencyTTL  = 24 * time.Hour
	criticalIdempotencyTTL = 7 * 24 * time.Hour

	// upper bound on how long a crashed request can hold its key
	inFlightTTL = 2 * time.Minute
)

// replayWindows maps POST path globs to how long a completed response stays
// replayable. Globs are matched against the request path because the route
// pattern is still partial inside a mounted subrouter.
var replayWindows = []struct {
	glob string
	ttl  time.Duration
}{
	{"/api/v1/earnings/withdrawals", criticalIdempotencyTTL},
	{"/api/v1/earnings/withdrawals/*/execute", criticalIdempotencyTTL},
	{"/api/v1/earnings/withdrawals/*/cancel", defaultIdempotencyTTL},
	{"/api/v1/earnings/commissions", defaultIdempotencyTTL},
	{"/api/admin/v1/commissions", defaultIdempotencyTTL},
	{"/api/admin/v1/commissions/payments", defaultIdempotencyTTL},
	{"/api/admin/v1/commissions/*/*", defaultIdempotencyTTL},
	{"/api/admin/v1/withdrawals/*/*", defaultIdempotencyTTL},
	{"/api/admin/v1/ledger/accounts/*/*/credit", defaultIdempotencyTTL},
	{"/api/admin/v1/ledger/accounts/*/*/debit", defaultIdempotencyTTL},
}

type entryState string

const (
	entryInFlight  entryState = "in_flight"
	entryCompleted entryState = "completed"
)

// idempotencyEntry is what sits under a key: first a reservation while the
// handler runs, then the captured response once it succeeds.
type idempotencyEntry struct {
	State       entryState `json:"state"`
	RequestHash string     `json:"request_hash"`
	Status      int        `json:"status,omitempty"`
	ContentType string     `json:"content_type,omitempty"`
	Body        []byte     `json:"body,omitempty"`
}

// Idempotency guards money-moving POSTs behind the Idempotency-Key header.
// The key is reserved before the handler runs so a concurrent duplicate gets
// a conflict instead of a second execution. A successful response overwrites
// the reservation and is replayed for the route's window; anything else
// releases the key for a retry.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, ok := routeTTL(r.Method, r.URL.Path)
			if !ok || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			clientKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
			if clientKey == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			sum := sha256.Sum256(body)
			hash := hex.EncodeToString(sum[:])
			key := store.IdempotencyKey(requestScope(r), clientKey)

			reserved, err := reserve(ctx, store, key, hash)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve idempotency key"))
				return
			}
			if !reserved {
				replayOrReject(ctx, store, logg, w, key, hash)
				return
			}

			capture := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(capture, r)

			status := capture.status
			if status == 0 {
				status = http.StatusOK
			}
			if status < 200 || status >= 300 {
				if err := store.Del(context.WithoutCancel(ctx), key); err != nil {
					logError(ctx, logg, "release idempotency reservation", err)
				}
				return
			}
			// the completed entry replaces the reservation in one write so a
			// duplicate never finds the key free
			persist(ctx, store, logg, key, idempotencyEntry{
				State:       entryCompleted,
				RequestHash: hash,
				Status:      status,
				ContentType: capture.Header().Get("Content-Type"),
				Body:        capture.body.Bytes(),
			}, ttl)
		})
	}
}

func reserve(ctx context.Context, store pkgredis.IdempotencyStore, key, hash string) (bool, error) {
	payload, err := json.Marshal(idempotencyEntry{State: entryInFlight, RequestHash: hash})
	if err != nil {
		return false, err
	}
	return store.SetNX(ctx, key, string(payload), inFlightTTL)
}

func replayOrReject(ctx context.Context, store pkgredis.IdempotencyStore, logg *logger.Logger, w http.ResponseWriter, key, hash string) {
	raw, err := store.Get(ctx, key)
	if errors.Is(err, redis.Nil) {
		// reservation vanished between SETNX and GET; the holder just finished with a failure
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "request with this idempotency key is still in progress"))
		return
	}
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load idempotency entry"))
		return
	}

	var entry idempotencyEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode idempotency entry"))
		return
	}
	switch {
	case entry.RequestHash != hash:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
	case entry.State != entryCompleted:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "request with this idempotency key is still in progress"))
	default:
		if entry.ContentType != "" {
			w.Header().Set("Content-Type", entry.ContentType)
		}
		w.Header().Set("Idempotent-Replayed", "true")
		w.WriteHeader(entry.Status)
		_, _ = w.Write(entry.Body)
	}
}

func persist(ctx context.Context, store pkgredis.IdempotencyStore, logg *logger.Logger, key string, entry idempotencyEntry, ttl time.Duration) {
	payload, err := json.Marshal(entry)
	if err != nil {
		logError(ctx, logg, "encode idempotency entry", err)
		return
	}
	if err := store.Set(context.WithoutCancel(ctx), key, string(payload), ttl); err != nil {
		logError(ctx, logg, "persist idempotency entry", err)
	}
}

// requestScope keeps keys from colliding across callers and routes.
func requestScope(r *http.Request) string {
	ctx := r.Context()
	return UserIDFromContext(ctx) + "|" + string(RoleFromContext(ctx)) + "|" + r.Method + "|" + r.URL.Path
}

func routeTTL(method, requestPath string) (time.Duration, bool) {
	if method != http.MethodPost {
		return 0, false
	}
	requestPath = strings.TrimSuffix(requestPath, "/")
	for _, window := range replayWindows {
		if matched, _ := path.Match(window.glob, requestPath); matched {
			return window.ttl, true
		}
	}
	return 0, false
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (r *responseCapture) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseCapture) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func logError(ctx context.Context, logg *logger.Logger, msg string, err error) {
	if logg == nil || err == nil {
		return
	}
	logg.Error(ctx, msg, err)
}
