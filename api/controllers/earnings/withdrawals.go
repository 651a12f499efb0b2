package earnings

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/talentbridge/talentbridge-backend/api/responses"
	"github.com/talentbridge/talentbridge-backend/api/validators"
	"github.com/talentbridge/talentbridge-backend/internal/ledger"
	"github.com/talentbridge/talentbridge-backend/internal/withdrawals"
	"github.com/talentbridge/talentbridge-backend/pkg/enums"
	pkgerrors "github.com/talentbridge/talentbridge-backend/pkg/errors"
	"github.com/talentbridge/talentbridge-backend/pkg/logger"
)

type withdrawalRequest struct {
	Amount         string            `json:"amount" validate:"required,money"`
	CommissionIDs  []uuid.UUID       `json:"commission_ids" validate:"required,min=1"`
	PaymentMethod  string            `json:"payment_method" validate:"required,oneof=bank_transfer paypal mobile_money"`
	PaymentDetails map[string]string `json:"payment_details" validate:"required"`
	Notes          string            `json:"notes,omitempty" validate:"max=500"`
}

func (p withdrawalRequest) toInput() withdrawals.RequestInput {
	return withdrawals.RequestInput{
		Amount:         decimal.RequireFromString(p.Amount),
		CommissionIDs:  p.CommissionIDs,
		PaymentMethod:  enums.PaymentMethod(p.PaymentMethod),
		PaymentDetails: withdrawals.PaymentDetails(p.PaymentDetails),
		Notes:          validators.SanitizeString(p.Notes, maxNoteLength),
	}
}

// ListWithdrawals pages through the owner's withdrawals.
func ListWithdrawals(svc withdrawals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "withdrawal service unavailable"))
			return
		}
		owner, err := ownerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := withdrawals.ListParams{Owner: owner, Params: page}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseWithdrawalStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			params.Status = &status
		}
		list, err := svc.ListByOwner(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// RequestWithdrawal creates a PENDING withdrawal over the listed commissions.
func RequestWithdrawal(svc withdrawals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "withdrawal service unavailable"))
			return
		}
		owner, err := ownerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload withdrawalRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		withdrawal, err := svc.Request(r.Context(), owner, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, withdrawal)
	}
}

// GetWithdrawal returns one of the owner's withdrawals.
func GetWithdrawal(svc withdrawals.Service, logg *logger.Logger) http.HandlerFunc {
	return ownedWithdrawal(svc, logg, func(r *http.Request, id uuid.UUID, owner ledger.Owner) (*withdrawals.Withdrawal, error) {
		return svc.Get(r.Context(), id, &owner)
	})
}

// CancelWithdrawal cancels a PENDING withdrawal and frees its commissions.
func CancelWithdrawal(svc withdrawals.Service, logg *logger.Logger) http.HandlerFunc {
	return ownedWithdrawal(svc, logg, func(r *http.Request, id uuid.UUID, owner ledger.Owner) (*withdrawals.Withdrawal, error) {
		return svc.Cancel(r.Context(), id, owner)
	})
}

// ExecuteWithdrawal debits the ledger for an APPROVED withdrawal.
func ExecuteWithdrawal(svc withdrawals.Service, logg *logger.Logger) http.HandlerFunc {
	return ownedWithdrawal(svc, logg, func(r *http.Request, id uuid.UUID, owner ledger.Owner) (*withdrawals.Withdrawal, error) {
		return svc.Execute(r.Context(), id, owner)
	})
}

func ownedWithdrawal(svc withdrawals.Service, logg *logger.Logger, call func(*http.Request, uuid.UUID, ledger.Owner) (*withdrawals.Withdrawal, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "withdrawal service unavailable"))
			return
		}
		owner, err := ownerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParseUUIDParam(r, "withdrawalId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		withdrawal, err := call(r, id, owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, withdrawal)
	}
}
