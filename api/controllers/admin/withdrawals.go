package admin

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/talentbridge/talentbridge-backend/api/responses"
	"github.com/talentbridge/talentbridge-backend/api/validators"
	"github.com/talentbridge/talentbridge-backend/internal/withdrawals"
	pkgerrors "github.com/talentbridge/talentbridge-backend/pkg/errors"
	"github.com/talentbridge/talentbridge-backend/pkg/logger"
)

func GetWithdrawal(svc withdrawals.Service, logg *logger.Logger) http.HandlerFunc {
	return withdrawalAction(svc, logg, func(r *http.Request, id uuid.UUID) (*withdrawals.Withdrawal, error) {
		return svc.Get(r.Context(), id, nil)
	})
}

func ApproveWithdrawal(svc withdrawals.Service, logg *logger.Logger) http.HandlerFunc {
	return withdrawalAction(svc, logg, func(r *http.Request, id uuid.UUID) (*withdrawals.Withdrawal, error) {
		return svc.Approve(r.Context(), id)
	})
}

// RejectWithdrawal cancels a withdrawal that has not been executed yet.
func RejectWithdrawal(svc withdrawals.Service, logg *logger.Logger) http.HandlerFunc {
	return withdrawalAction(svc, logg, func(r *http.Request, id uuid.UUID) (*withdrawals.Withdrawal, error) {
		var payload reasonRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		return svc.Reject(r.Context(), id, validators.SanitizeString(payload.Reason, maxReasonLength))
	})
}

// CompleteWithdrawal records the payout as settled and marks its commissions paid.
func CompleteWithdrawal(svc withdrawals.Service, logg *logger.Logger) http.HandlerFunc {
	return withdrawalAction(svc, logg, func(r *http.Request, id uuid.UUID) (*withdrawals.Withdrawal, error) {
		return svc.Complete(r.Context(), id)
	})
}

func withdrawalAction(svc withdrawals.Service, logg *logger.Logger, call func(*http.Request, uuid.UUID) (*withdrawals.Withdrawal, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "withdrawal service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "withdrawalId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		withdrawal, err := call(r, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, withdrawal)
	}
}
