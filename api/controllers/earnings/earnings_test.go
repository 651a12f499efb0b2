package earnings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/talentbridge/talentbridge-backend/api/middleware"
	"github.com/talentbridge/talentbridge-backend/internal/ledger"
	"github.com/talentbridge/talentbridge-backend/internal/withdrawals"
	"github.com/talentbridge/talentbridge-backend/pkg/enums"
	pkgerrors "github.com/talentbridge/talentbridge-backend/pkg/errors"
)

type stubWithdrawalService struct {
	withdrawals.Service
	balance func(ctx context.Context, owner ledger.Owner) (*withdrawals.BalanceSummary, error)
	request func(ctx context.Context, owner ledger.Owner, input withdrawals.RequestInput) (*withdrawals.Withdrawal, error)
	cancel  func(ctx context.Context, id uuid.UUID, owner ledger.Owner) (*withdrawals.Withdrawal, error)
	list    func(ctx context.Context, params withdrawals.ListParams) (*withdrawals.ListResult, error)
}

func (s *stubWithdrawalService) CalculateBalance(ctx context.Context, owner ledger.Owner) (*withdrawals.BalanceSummary, error) {
	return s.balance(ctx, owner)
}

func (s *stubWithdrawalService) Request(ctx context.Context, owner ledger.Owner, input withdrawals.RequestInput) (*withdrawals.Withdrawal, error) {
	return s.request(ctx, owner, input)
}

func (s *stubWithdrawalService) Cancel(ctx context.Context, id uuid.UUID, owner ledger.Owner) (*withdrawals.Withdrawal, error) {
	return s.cancel(ctx, id, owner)
}

func (s *stubWithdrawalService) ListByOwner(ctx context.Context, params withdrawals.ListParams) (*withdrawals.ListResult, error) {
	return s.list(ctx, params)
}

func asConsultant(req *http.Request, userID uuid.UUID) *http.Request {
	return req.WithContext(middleware.WithIdentity(req.Context(), userID.String(), enums.ActorRoleConsultant))
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rc := chi.NewRouteContext()
	rc.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func errorCode(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	return payload.Error.Code
}

func TestBalanceUsesTokenOwner(t *testing.T) {
	userID := uuid.New()
	svc := &stubWithdrawalService{balance: func(_ context.Context, owner ledger.Owner) (*withdrawals.BalanceSummary, error) {
		if owner.ID != userID || owner.Type != enums.OwnerTypeConsultant {
			t.Fatalf("unexpected owner %+v", owner)
		}
		return &withdrawals.BalanceSummary{OwnerID: owner.ID, AvailableBalance: decimal.RequireFromString("500.00")}, nil
	}}

	resp := httptest.NewRecorder()
	Balance(svc, nil)(resp, asConsultant(httptest.NewRequest(http.MethodGet, "/api/v1/earnings/balance", nil), userID))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"available_balance":"500"`) {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
}

func TestBalanceRejectsNonEarners(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/earnings/balance", nil)
	req = req.WithContext(middleware.WithIdentity(req.Context(), uuid.NewString(), enums.ActorRoleCompany))
	resp := httptest.NewRecorder()
	Balance(&stubWithdrawalService{}, nil)(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestRequestWithdrawalMapsBody(t *testing.T) {
	userID := uuid.New()
	commissionID := uuid.New()
	svc := &stubWithdrawalService{request: func(_ context.Context, owner ledger.Owner, input withdrawals.RequestInput) (*withdrawals.Withdrawal, error) {
		if !input.Amount.Equal(decimal.RequireFromString("500.00")) {
			t.Fatalf("unexpected amount %s", input.Amount)
		}
		if len(input.CommissionIDs) != 1 || input.CommissionIDs[0] != commissionID {
			t.Fatalf("unexpected ids %v", input.CommissionIDs)
		}
		if input.PaymentMethod != enums.PaymentMethodPayPal || input.PaymentDetails["email"] != "ann@example.com" {
			t.Fatalf("unexpected payment input %+v", input)
		}
		return &withdrawals.Withdrawal{ID: uuid.New(), ConsultantID: owner.ID, Status: enums.WithdrawalStatusPending}, nil
	}}
	body := `{"amount":"500.00","commission_ids":["` + commissionID.String() + `"],"payment_method":"paypal","payment_details":{"email":"ann@example.com"}}`

	resp := httptest.NewRecorder()
	RequestWithdrawal(svc, nil)(resp, asConsultant(httptest.NewRequest(http.MethodPost, "/api/v1/earnings/withdrawals", strings.NewReader(body)), userID))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestRequestWithdrawalValidatesBody(t *testing.T) {
	cases := []string{
		`{"amount":"0","commission_ids":["` + uuid.NewString() + `"],"payment_method":"paypal","payment_details":{"email":"a@b.co"}}`,
		`{"amount":"10.00","commission_ids":[],"payment_method":"paypal","payment_details":{"email":"a@b.co"}}`,
		`{"amount":"10.00","commission_ids":["` + uuid.NewString() + `"],"payment_method":"cheque","payment_details":{"email":"a@b.co"}}`,
	}
	svc := &stubWithdrawalService{request: func(context.Context, ledger.Owner, withdrawals.RequestInput) (*withdrawals.Withdrawal, error) {
		t.Fatal("service should not be called for invalid bodies")
		return nil, nil
	}}
	for _, body := range cases {
		resp := httptest.NewRecorder()
		RequestWithdrawal(svc, nil)(resp, asConsultant(httptest.NewRequest(http.MethodPost, "/api/v1/earnings/withdrawals", strings.NewReader(body)), uuid.New()))
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("body %s: expected 400 got %d", body, resp.Code)
		}
	}
}

func TestCancelWithdrawalPassesServiceErrors(t *testing.T) {
	withdrawalID := uuid.New()
	svc := &stubWithdrawalService{cancel: func(_ context.Context, id uuid.UUID, _ ledger.Owner) (*withdrawals.Withdrawal, error) {
		if id != withdrawalID {
			t.Fatalf("unexpected id %s", id)
		}
		return nil, pkgerrors.New(pkgerrors.CodeInvalidState, "only pending withdrawals can be cancelled")
	}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/earnings/withdrawals/"+withdrawalID.String()+"/cancel", nil)
	req = withURLParam(asConsultant(req, uuid.New()), "withdrawalId", withdrawalID.String())

	resp := httptest.NewRecorder()
	CancelWithdrawal(svc, nil)(resp, req)
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
	if code := errorCode(t, resp); code != string(pkgerrors.CodeInvalidState) {
		t.Fatalf("unexpected code %s", code)
	}
}

func TestCancelWithdrawalRejectsBadID(t *testing.T) {
	req := withURLParam(asConsultant(httptest.NewRequest(http.MethodPost, "/", nil), uuid.New()), "withdrawalId", "nope")
	resp := httptest.NewRecorder()
	CancelWithdrawal(&stubWithdrawalService{}, nil)(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestListWithdrawalsParsesFilters(t *testing.T) {
	svc := &stubWithdrawalService{list: func(_ context.Context, params withdrawals.ListParams) (*withdrawals.ListResult, error) {
		if params.Status == nil || *params.Status != enums.WithdrawalStatusApproved {
			t.Fatalf("expected approved filter, got %v", params.Status)
		}
		if params.Limit != 5 {
			t.Fatalf("expected limit 5, got %d", params.Limit)
		}
		return &withdrawals.ListResult{}, nil
	}}
	resp := httptest.NewRecorder()
	ListWithdrawals(svc, nil)(resp, asConsultant(httptest.NewRequest(http.MethodGet, "/api/v1/earnings/withdrawals?status=approved&limit=5", nil), uuid.New()))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	ListWithdrawals(svc, nil)(resp, asConsultant(httptest.NewRequest(http.MethodGet, "/api/v1/earnings/withdrawals?status=unknown", nil), uuid.New()))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status got %d", resp.Code)
	}
}
