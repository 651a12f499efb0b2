package routes

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/talentbridge/talentbridge-backend/internal/ledger"
	"github.com/talentbridge/talentbridge-backend/internal/withdrawals"
	"github.com/talentbridge/talentbridge-backend/pkg/auth"
	"github.com/talentbridge/talentbridge-backend/pkg/config"
	"github.com/talentbridge/talentbridge-backend/pkg/enums"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type memoryStore struct {
	data    map[string]string
	windows map[string]int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string]string{}, windows: map[string]int64{}}
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (m *memoryStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.data[key] = fmt.Sprint(value)
	return nil
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = fmt.Sprint(value)
	return true, nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string { return "idem:" + scope + ":" + id }

func (m *memoryStore) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	m.windows[scope]++
	return m.windows[scope] <= limit, m.windows[scope], nil
}

type stubWithdrawals struct {
	withdrawals.Service
	requests int
}

func (s *stubWithdrawals) CalculateBalance(_ context.Context, owner ledger.Owner) (*withdrawals.BalanceSummary, error) {
	return &withdrawals.BalanceSummary{OwnerType: owner.Type, OwnerID: owner.ID, Currency: "KES"}, nil
}

func (s *stubWithdrawals) Request(_ context.Context, owner ledger.Owner, input withdrawals.RequestInput) (*withdrawals.Withdrawal, error) {
	s.requests++
	return &withdrawals.Withdrawal{ID: uuid.New(), ConsultantID: owner.ID, Amount: input.Amount, Status: enums.WithdrawalStatusPending}, nil
}

func (s *stubWithdrawals) Approve(_ context.Context, id uuid.UUID) (*withdrawals.Withdrawal, error) {
	return &withdrawals.Withdrawal{ID: id, Status: enums.WithdrawalStatusApproved}, nil
}

var testConfig = &config.Config{
	App:       config.AppConfig{Env: "test", CORSOrigins: []string{"http://localhost:3000"}},
	JWT:       config.JWTConfig{Secret: "router-secret", Issuer: "talentbridge", ExpirationMinutes: 5},
	RateLimit: config.RateLimitConfig{Window: time.Minute, PerUser: 3, PerIP: 100},
}

type fixture struct {
	handler     http.Handler
	withdrawals *stubWithdrawals
	store       *memoryStore
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	svc := &stubWithdrawals{}
	store := newMemoryStore()
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "talentbridge_test_total", Help: "test"}))
	handler := NewRouter(Params{
		Config:      testConfig,
		DB:          stubPinger{},
		Redis:       stubPinger{},
		Store:       store,
		Gatherer:    reg,
		Withdrawals: svc,
	})
	return fixture{handler: handler, withdrawals: svc, store: store}
}

func bearer(t *testing.T, role enums.ActorRole) string {
	t.Helper()
	token, err := auth.MintAccessToken(testConfig.JWT, time.Now(), auth.AccessTokenPayload{UserID: uuid.New(), Role: role})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return "Bearer " + token
}

func (f fixture) do(method, path, token, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	resp := httptest.NewRecorder()
	f.handler.ServeHTTP(resp, req)
	return resp
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t)
	if resp := f.do(http.MethodGet, "/health/live", "", "", ""); resp.Code != http.StatusOK {
		t.Fatalf("live: expected 200 got %d", resp.Code)
	}
	if resp := f.do(http.MethodGet, "/health/ready", "", "", ""); resp.Code != http.StatusOK {
		t.Fatalf("ready: expected 200 got %d", resp.Code)
	}
	resp := f.do(http.MethodGet, "/metrics", "", "", "")
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), "talentbridge_test_total") {
		t.Fatalf("metrics: unexpected response %d %s", resp.Code, resp.Body.String())
	}
}

func TestEarningsRoutesRequireEarnerToken(t *testing.T) {
	f := newFixture(t)
	if resp := f.do(http.MethodGet, "/api/v1/earnings/balance", "", "", ""); resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
	if resp := f.do(http.MethodGet, "/api/v1/earnings/balance", bearer(t, enums.ActorRoleAdmin), "", ""); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for admin got %d", resp.Code)
	}
	if resp := f.do(http.MethodGet, "/api/v1/earnings/balance", bearer(t, enums.ActorRoleSalesAgent), "", ""); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for sales agent got %d", resp.Code)
	}
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	f := newFixture(t)
	path := "/api/admin/v1/withdrawals/" + uuid.NewString() + "/approve"
	if resp := f.do(http.MethodPost, path, bearer(t, enums.ActorRoleConsultant), "k1", ""); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
	if resp := f.do(http.MethodPost, path, bearer(t, enums.ActorRoleAdmin), "", ""); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without idempotency key got %d", resp.Code)
	}
	if resp := f.do(http.MethodPost, path, bearer(t, enums.ActorRoleAdmin), "k1", ""); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestWithdrawalRequestIsReplayedForSameKey(t *testing.T) {
	f := newFixture(t)
	token := bearer(t, enums.ActorRoleConsultant)
	body := `{"amount":"500.00","commission_ids":["` + uuid.NewString() + `"],"payment_method":"paypal","payment_details":{"email":"ann@example.com"}}`

	first := f.do(http.MethodPost, "/api/v1/earnings/withdrawals", token, "payout-1", body)
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", first.Code, first.Body.String())
	}
	second := f.do(http.MethodPost, "/api/v1/earnings/withdrawals", token, "payout-1", body)
	if second.Code != http.StatusCreated || second.Body.String() != first.Body.String() {
		t.Fatalf("expected replayed response, got %d %s", second.Code, second.Body.String())
	}
	if f.withdrawals.requests != 1 {
		t.Fatalf("expected one service call, got %d", f.withdrawals.requests)
	}
}

func TestEarningsRateLimitPerUser(t *testing.T) {
	f := newFixture(t)
	token := bearer(t, enums.ActorRoleConsultant)
	for i := 0; i < testConfig.RateLimit.PerUser; i++ {
		if resp := f.do(http.MethodGet, "/api/v1/earnings/balance", token, "", ""); resp.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200 got %d", i, resp.Code)
		}
	}
	if resp := f.do(http.MethodGet, "/api/v1/earnings/balance", token, "", ""); resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", resp.Code)
	}
}
