package admin

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/talentbridge/talentbridge-backend/api/responses"
	"github.com/talentbridge/talentbridge-backend/api/validators"
	"github.com/talentbridge/talentbridge-backend/internal/ledger"
	"github.com/talentbridge/talentbridge-backend/pkg/enums"
	pkgerrors "github.com/talentbridge/talentbridge-backend/pkg/errors"
	"github.com/talentbridge/talentbridge-backend/pkg/logger"
)

type entryRequest struct {
	Amount        string     `json:"amount" validate:"required,money"`
	Type          string     `json:"type" validate:"required"`
	Description   string     `json:"description" validate:"required,max=500"`
	Currency      string     `json:"currency,omitempty" validate:"omitempty,currency"`
	ReferenceType string     `json:"reference_type,omitempty"`
	ReferenceID   *uuid.UUID `json:"reference_id,omitempty"`
}

func (p entryRequest) toEntry(owner ledger.Owner) (ledger.Entry, error) {
	txType, err := enums.ParseTransactionType(p.Type)
	if err != nil {
		return ledger.Entry{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid transaction type")
	}
	entry := ledger.Entry{
		Owner:       owner,
		Amount:      decimal.RequireFromString(p.Amount),
		Type:        txType,
		Description: validators.SanitizeString(p.Description, maxReasonLength),
		Currency:    p.Currency,
	}
	if p.ReferenceType != "" || p.ReferenceID != nil {
		refType, err := enums.ParseReferenceType(p.ReferenceType)
		if err != nil || p.ReferenceID == nil || *p.ReferenceID == uuid.Nil {
			return ledger.Entry{}, pkgerrors.New(pkgerrors.CodeValidation, "reference requires a valid type and id")
		}
		entry.Reference = &ledger.Reference{Type: refType, ID: *p.ReferenceID}
	}
	return entry, nil
}

func ownerFromPath(r *http.Request) (ledger.Owner, error) {
	ownerType, err := enums.ParseOwnerType(strings.TrimSpace(chi.URLParam(r, "ownerType")))
	if err != nil {
		return ledger.Owner{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid owner type")
	}
	id, err := validators.ParseUUIDParam(r, "ownerId")
	if err != nil {
		return ledger.Owner{}, err
	}
	return ledger.Owner{Type: ownerType, ID: id}, nil
}

// GetAccount returns the stored balance of any virtual account.
func GetAccount(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return accountAction(svc, logg, func(r *http.Request, owner ledger.Owner) (any, error) {
		return svc.GetBalance(r.Context(), owner)
	})
}

// VerifyAccount replays the account history and reports any drift from the stored totals.
func VerifyAccount(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return accountAction(svc, logg, func(r *http.Request, owner ledger.Owner) (any, error) {
		return svc.VerifyOwner(r.Context(), owner)
	})
}

func CreditAccount(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return accountAction(svc, logg, func(r *http.Request, owner ledger.Owner) (any, error) {
		entry, err := decodeEntry(r, owner)
		if err != nil {
			return nil, err
		}
		posting, err := svc.Credit(r.Context(), entry)
		if err != nil {
			return nil, err
		}
		return posting.View(), nil
	})
}

func DebitAccount(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return accountAction(svc, logg, func(r *http.Request, owner ledger.Owner) (any, error) {
		entry, err := decodeEntry(r, owner)
		if err != nil {
			return nil, err
		}
		posting, err := svc.Debit(r.Context(), entry)
		if err != nil {
			return nil, err
		}
		return posting.View(), nil
	})
}

func FreezeAccount(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return accountAction(svc, logg, func(r *http.Request, owner ledger.Owner) (any, error) {
		return svc.SetStatus(r.Context(), owner, enums.AccountStatusFrozen)
	})
}

func UnfreezeAccount(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return accountAction(svc, logg, func(r *http.Request, owner ledger.Owner) (any, error) {
		return svc.SetStatus(r.Context(), owner, enums.AccountStatusActive)
	})
}

func decodeEntry(r *http.Request, owner ledger.Owner) (ledger.Entry, error) {
	var payload entryRequest
	if err := validators.DecodeJSONBody(r, &payload); err != nil {
		return ledger.Entry{}, err
	}
	return payload.toEntry(owner)
}

func accountAction(svc ledger.Service, logg *logger.Logger, call func(*http.Request, ledger.Owner) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}
		owner, err := ownerFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := call(r, owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
