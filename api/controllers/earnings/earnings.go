package earnings

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/talentbridge/talentbridge-backend/api/middleware"
	"github.com/talentbridge/talentbridge-backend/api/responses"
	"github.com/talentbridge/talentbridge-backend/api/validators"
	"github.com/talentbridge/talentbridge-backend/internal/commissions"
	"github.com/talentbridge/talentbridge-backend/internal/ledger"
	"github.com/talentbridge/talentbridge-backend/internal/withdrawals"
	"github.com/talentbridge/talentbridge-backend/pkg/enums"
	pkgerrors "github.com/talentbridge/talentbridge-backend/pkg/errors"
	"github.com/talentbridge/talentbridge-backend/pkg/logger"
)

const maxNoteLength = 500

func ownerFromRequest(r *http.Request) (ledger.Owner, error) {
	owner, ok := middleware.OwnerFromContext(r.Context())
	if !ok {
		return ledger.Owner{}, pkgerrors.New(pkgerrors.CodeForbidden, "earnings are only available to consultants and sales agents")
	}
	return owner, nil
}

// Balance returns the owner's balance summary.
func Balance(svc withdrawals.Service, logg *logger.Logger) http.HandlerFunc {
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
		summary, err := svc.CalculateBalance(r.Context(), owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

// ListCommissions pages through the owner's commissions, optionally filtered by status.
func ListCommissions(svc commissions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "commission service unavailable"))
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
		params := commissions.ListParams{Owner: owner, Params: page}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseCommissionStatus(raw)
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

type commissionRequest struct {
	Type           string     `json:"type" validate:"required,oneof=placement recruitment_service subscription_sale custom"`
	JobID          *uuid.UUID `json:"job_id,omitempty"`
	SubscriptionID *uuid.UUID `json:"subscription_id,omitempty"`
	Amount         string     `json:"amount,omitempty" validate:"omitempty,money"`
	Currency       string     `json:"currency,omitempty" validate:"omitempty,currency"`
	Notes          string     `json:"notes,omitempty" validate:"max=500"`
}

func (p commissionRequest) toInput(owner ledger.Owner) commissions.RequestInput {
	input := commissions.RequestInput{
		ConsultantID:   owner.ID,
		OwnerType:      owner.Type,
		Type:           enums.CommissionType(p.Type),
		JobID:          p.JobID,
		SubscriptionID: p.SubscriptionID,
		Currency:       p.Currency,
		Notes:          validators.SanitizeString(p.Notes, maxNoteLength),
	}
	if p.Amount != "" {
		amount := decimal.RequireFromString(p.Amount)
		input.Amount = &amount
	}
	return input
}

// RequestCommission lets an owner claim a commission; it starts PENDING.
func RequestCommission(svc commissions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "commission service unavailable"))
			return
		}
		owner, err := ownerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload commissionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		commission, created, err := svc.Request(r.Context(), payload.toInput(owner))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		responses.WriteSuccessStatus(w, status, commission)
	}
}

// ListTransactions returns the owner's ledger history, newest first.
func ListTransactions(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
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
		list, err := svc.ListTransactions(r.Context(), owner, page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}
