package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/talentbridge/talentbridge-backend/pkg/enums"
	pkgerrors "github.com/talentbridge/talentbridge-backend/pkg/errors"
)

type fakeStore struct {
	data map[string]string
	ttls map[string]time.Duration

	// beforeWrite runs at the start of Set and Del, where a concurrent
	// duplicate would land.
	beforeWrite func()
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	f.runBeforeWrite()
	f.data[key], _ = value.(string)
	f.ttls[key] = ttl
	return nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	f.data[key], _ = value.(string)
	f.ttls[key] = ttl
	return true, nil
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	f.runBeforeWrite()
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func (f *fakeStore) runBeforeWrite() {
	if hook := f.beforeWrite; hook != nil {
		f.beforeWrite = nil
		hook()
	}
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

const withdrawalsPath = "/api/v1/earnings/withdrawals"

func idempotentRequest(path, key, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	rc := chi.NewRouteContext()
	rc.RoutePatterns = []string{path}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rc)
	ctx = WithIdentity(ctx, "4a4c9a1e-0d0e-4c5b-9b8e-2f0f6c1d2e3f", enums.ActorRoleConsultant)
	return req.WithContext(ctx)
}

func TestRouteTTLSelection(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		pattern string
		want    time.Duration
		ok      bool
	}{
		{"withdrawal request", http.MethodPost, withdrawalsPath, criticalIdempotencyTTL, true},
		{"withdrawal execute", http.MethodPost, "/api/v1/earnings/withdrawals/{withdrawalId}/execute", criticalIdempotencyTTL, true},
		{"withdrawal execute by path", http.MethodPost, "/api/v1/earnings/withdrawals/0b7e/execute", criticalIdempotencyTTL, true},
		{"withdrawal cancel", http.MethodPost, "/api/v1/earnings/withdrawals/0b7e/cancel", defaultIdempotencyTTL, true},
		{"admin award", http.MethodPost, "/api/admin/v1/commissions", defaultIdempotencyTTL, true},
		{"admin clawback", http.MethodPost, "/api/admin/v1/commissions/{commissionId}/clawback", defaultIdempotencyTTL, true},
		{"admin credit", http.MethodPost, "/api/admin/v1/ledger/accounts/consultant/1/credit", defaultIdempotencyTTL, true},
		{"admin freeze", http.MethodPost, "/api/admin/v1/ledger/accounts/consultant/1/freeze", 0, false},
		{"balance read", http.MethodGet, "/api/v1/earnings/balance", 0, false},
	}
	for _, tt := range tests {
		ttl, ok := routeTTL(tt.method, tt.pattern)
		if ok != tt.ok {
			t.Fatalf("%s: expected ok=%v got %v", tt.name, tt.ok, ok)
		}
		if ok && ttl != tt.want {
			t.Fatalf("%s: expected ttl=%v got %v", tt.name, tt.want, ttl)
		}
	}
}

func TestIdempotencyRequiresHeader(t *testing.T) {
	called := false
	handler := Idempotency(newFakeStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, idempotentRequest(withdrawalsPath, "", `{"amount":"10.00"}`))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if called {
		t.Fatal("handler should not run without an idempotency key")
	}
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"status":"pending"}}`))
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, idempotentRequest(withdrawalsPath, "abc", `{"amount":"10.00"}`))
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", first.Code)
	}

	replay := httptest.NewRecorder()
	handler.ServeHTTP(replay, idempotentRequest(withdrawalsPath, "abc", `{"amount":"10.00"}`))
	if replay.Code != http.StatusCreated {
		t.Fatalf("expected replayed 201 got %d", replay.Code)
	}
	if replay.Header().Get("Content-Type") != "application/json" {
		t.Fatal("expected content type preserved")
	}
	if strings.TrimSpace(replay.Body.String()) != `{"data":{"status":"pending"}}` {
		t.Fatalf("unexpected replay body %s", replay.Body.String())
	}
	if calls != 1 {
		t.Fatalf("handler ran %d times, expected 1", calls)
	}
	for _, ttl := range store.ttls {
		if ttl != criticalIdempotencyTTL {
			t.Fatalf("expected 7d ttl for withdrawal request, got %s", ttl)
		}
	}
}

func TestIdempotencyRejectsChangedBody(t *testing.T) {
	handler := Idempotency(newFakeStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), idempotentRequest(withdrawalsPath, "xyz", `{"amount":"10.00"}`))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, idempotentRequest(withdrawalsPath, "xyz", `{"amount":"99.00"}`))
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse error response: %v", err)
	}
	if payload.Error.Code != string(pkgerrors.CodeIdempotency) {
		t.Fatalf("expected %s got %s", pkgerrors.CodeIdempotency, payload.Error.Code)
	}
}

func TestIdempotencyDoesNotStoreFailures(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusConflict)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), idempotentRequest(withdrawalsPath, "retry", `{}`))
	handler.ServeHTTP(httptest.NewRecorder(), idempotentRequest(withdrawalsPath, "retry", `{}`))

	if calls != 2 {
		t.Fatalf("expected failed request to be retried, handler ran %d times", calls)
	}
	if len(store.data) != 0 {
		t.Fatalf("expected nothing stored, got %d records", len(store.data))
	}
}

func TestIdempotencyRejectsDuplicateWhileInFlight(t *testing.T) {
	store := newFakeStore()
	var nested *httptest.ResponseRecorder
	var handler http.Handler
	handler = Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if nested == nil {
			nested = httptest.NewRecorder()
			handler.ServeHTTP(nested, idempotentRequest(withdrawalsPath, "dup", `{"amount":"10.00"}`))
		}
		w.WriteHeader(http.StatusCreated)
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, idempotentRequest(withdrawalsPath, "dup", `{"amount":"10.00"}`))

	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", first.Code)
	}
	if nested.Code != http.StatusConflict {
		t.Fatalf("expected in-flight duplicate to get 409, got %d", nested.Code)
	}
	if !strings.Contains(nested.Body.String(), "in progress") {
		t.Fatalf("unexpected body %s", nested.Body.String())
	}
}

func TestIdempotencyMarksReplays(t *testing.T) {
	handler := Idempotency(newFakeStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	first := httptest.NewRecorder()
	handler.ServeHTTP(first, idempotentRequest(withdrawalsPath, "mark", `{}`))
	if first.Header().Get("Idempotent-Replayed") != "" {
		t.Fatal("first response should not be marked as replayed")
	}

	replay := httptest.NewRecorder()
	handler.ServeHTTP(replay, idempotentRequest(withdrawalsPath, "mark", `{}`))
	if replay.Header().Get("Idempotent-Replayed") != "true" {
		t.Fatal("expected replay marker header")
	}
}

func TestIdempotencySkipsNonMutatingRoutes(t *testing.T) {
	called := false
	handler := Idempotency(newFakeStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	req := idempotentRequest("/api/admin/v1/ledger/accounts/consultant/1/freeze", "", `{}`)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if !called {
		t.Fatal("freeze should not require an idempotency key")
	}
}

func TestIdempotencyHoldsKeyWhileStoringResponse(t *testing.T) {
	store := newFakeStore()
	calls := 0
	var handler http.Handler
	handler = Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))
	path := "/api/admin/v1/ledger/accounts/consultant/1/credit"
	duplicate := httptest.NewRecorder()
	store.beforeWrite = func() {
		handler.ServeHTTP(duplicate, idempotentRequest(path, "credit-1", `{"amount":"5.00"}`))
	}

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, idempotentRequest(path, "credit-1", `{"amount":"5.00"}`))

	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", first.Code)
	}
	if duplicate.Code != http.StatusConflict {
		t.Fatalf("expected duplicate during completion to get 409, got %d", duplicate.Code)
	}
	if calls != 1 {
		t.Fatalf("handler ran %d times, expected 1", calls)
	}

	replay := httptest.NewRecorder()
	handler.ServeHTTP(replay, idempotentRequest(path, "credit-1", `{"amount":"5.00"}`))
	if replay.Code != http.StatusCreated || replay.Header().Get("Idempotent-Replayed") != "true" {
		t.Fatalf("expected replayed 201, got %d", replay.Code)
	}
}

func TestIdempotencyStoresImplicitOKStatus(t *testing.T) {
	store := newFakeStore()
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	handler.ServeHTTP(httptest.NewRecorder(), idempotentRequest(withdrawalsPath, "silent", `{}`))

	for _, raw := range store.data {
		var entry idempotencyEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			t.Fatalf("decode stored entry: %v", err)
		}
		if entry.Status != http.StatusOK {
			t.Fatalf("expected stored status 200, got %d", entry.Status)
		}
	}

	replay := httptest.NewRecorder()
	handler.ServeHTTP(replay, idempotentRequest(withdrawalsPath, "silent", `{}`))
	if replay.Code != http.StatusOK {
		t.Fatalf("expected replayed 200, got %d", replay.Code)
	}
}
