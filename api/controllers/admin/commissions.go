package admin

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/talentbridge/talentbridge-backend/api/responses"
	"github.com/talentbridge/talentbridge-backend/api/validators"
	"github.com/talentbridge/talentbridge-backend/internal/commissions"
	"github.com/talentbridge/talentbridge-backend/pkg/enums"
	pkgerrors "github.com/talentbridge/talentbridge-backend/pkg/errors"
	"github.com/talentbridge/talentbridge-backend/pkg/logger"
)

const maxReasonLength = 500

type awardRequest struct {
	ConsultantID   uuid.UUID  `json:"consultant_id" validate:"required"`
	OwnerType      string     `json:"owner_type" validate:"required,oneof=consultant sales_agent"`
	Type           string     `json:"type" validate:"required,oneof=placement recruitment_service subscription_sale custom"`
	JobID          *uuid.UUID `json:"job_id,omitempty"`
	SubscriptionID *uuid.UUID `json:"subscription_id,omitempty"`
	Amount         string     `json:"amount,omitempty" validate:"omitempty,money"`
	OverrideRate   string     `json:"override_rate,omitempty" validate:"omitempty,rate"`
	Currency       string     `json:"currency,omitempty" validate:"omitempty,currency"`
	Notes          string     `json:"notes,omitempty" validate:"max=500"`
}

func (p awardRequest) toInput() commissions.AwardInput {
	input := commissions.AwardInput{
		ConsultantID:   p.ConsultantID,
		OwnerType:      enums.OwnerType(p.OwnerType),
		Type:           enums.CommissionType(p.Type),
		JobID:          p.JobID,
		SubscriptionID: p.SubscriptionID,
		Currency:       p.Currency,
		Notes:          validators.SanitizeString(p.Notes, maxReasonLength),
	}
	if p.Amount != "" {
		amount := decimal.RequireFromString(p.Amount)
		input.Amount = &amount
	}
	if p.OverrideRate != "" {
		rate := decimal.RequireFromString(p.OverrideRate)
		input.OverrideRate = &rate
	}
	return input
}

type reasonRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type optionalReasonRequest struct {
	Reason string `json:"reason,omitempty" validate:"max=500"`
}

type resolveRequest struct {
	Resolution string `json:"resolution" validate:"required,oneof=valid invalid"`
	Notes      string `json:"notes,omitempty" validate:"max=500"`
}

type paymentsRequest struct {
	CommissionIDs []uuid.UUID `json:"commission_ids" validate:"required,min=1,max=200"`
}

// AwardCommission creates a CONFIRMED commission and credits the owner. A
// replayed award for the same job or subscription returns the original.
func AwardCommission(svc commissions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "commission service unavailable"))
			return
		}
		var payload awardRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		commission, created, err := svc.Award(r.Context(), payload.toInput())
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

func GetCommission(svc commissions.Service, logg *logger.Logger) http.HandlerFunc {
	return commissionAction(svc, logg, func(r *http.Request, id uuid.UUID) (*commissions.Commission, error) {
		return svc.Get(r.Context(), id)
	})
}

func ConfirmCommission(svc commissions.Service, logg *logger.Logger) http.HandlerFunc {
	return commissionAction(svc, logg, func(r *http.Request, id uuid.UUID) (*commissions.Commission, error) {
		return svc.Confirm(r.Context(), id)
	})
}

func MarkCommissionPaid(svc commissions.Service, logg *logger.Logger) http.HandlerFunc {
	return commissionAction(svc, logg, func(r *http.Request, id uuid.UUID) (*commissions.Commission, error) {
		return svc.MarkAsPaid(r.Context(), id)
	})
}

func DisputeCommission(svc commissions.Service, logg *logger.Logger) http.HandlerFunc {
	return commissionAction(svc, logg, func(r *http.Request, id uuid.UUID) (*commissions.Commission, error) {
		var payload reasonRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		return svc.Dispute(r.Context(), id, validators.SanitizeString(payload.Reason, maxReasonLength))
	})
}

func ResolveDispute(svc commissions.Service, logg *logger.Logger) http.HandlerFunc {
	return commissionAction(svc, logg, func(r *http.Request, id uuid.UUID) (*commissions.Commission, error) {
		var payload resolveRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		resolution := enums.DisputeResolution(payload.Resolution)
		return svc.ResolveDispute(r.Context(), id, resolution, validators.SanitizeString(payload.Notes, maxReasonLength))
	})
}

// ClawbackCommission reverses an earned commission and debits the owner.
func ClawbackCommission(svc commissions.Service, logg *logger.Logger) http.HandlerFunc {
	return commissionAction(svc, logg, func(r *http.Request, id uuid.UUID) (*commissions.Commission, error) {
		var payload reasonRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		return svc.Clawback(r.Context(), id, validators.SanitizeString(payload.Reason, maxReasonLength))
	})
}

func CancelCommission(svc commissions.Service, logg *logger.Logger) http.HandlerFunc {
	return commissionAction(svc, logg, func(r *http.Request, id uuid.UUID) (*commissions.Commission, error) {
		var payload optionalReasonRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		return svc.Cancel(r.Context(), id, validators.SanitizeString(payload.Reason, maxReasonLength))
	})
}

// ProcessPayments marks a batch of commissions paid. Per-item failures are
// reported in the result rather than failing the request.
func ProcessPayments(svc commissions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "commission service unavailable"))
			return
		}
		var payload paymentsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		results, err := svc.ProcessPayments(r.Context(), payload.CommissionIDs)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"results": results})
	}
}

func commissionAction(svc commissions.Service, logg *logger.Logger, call func(*http.Request, uuid.UUID) (*commissions.Commission, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "commission service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "commissionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		commission, err := call(r, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, commission)
	}
}
