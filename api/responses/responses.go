package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	pkgerrors "github.com/talentbridge/talentbridge-backend/pkg/errors"
	"github.com/talentbridge/talentbridge-backend/pkg/logger"
	"github.com/talentbridge/talentbridge-backend/pkg/types"
)

// fallbackBody is sent when a payload cannot be encoded. It is a literal so
// it cannot fail the same way.
const fallbackBody = `{"error":{"code":"INTERNAL_ERROR","message":"internal server error"}}`

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, types.SuccessEnvelope{Data: data})
}

// WriteError maps err onto its public envelope. Untyped errors become
// INTERNAL_ERROR, and codes that may carry infrastructure detail fall back to
// their generic message.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	meta := pkgerrors.MetadataFor(typed.Code())

	apiErr := types.APIError{Code: string(typed.Code()), Message: meta.PublicMessage}
	if m := typed.Message(); m != "" && exposesMessage(typed.Code()) {
		apiErr.Message = m
	}
	if meta.DetailsAllowed {
		apiErr.Details = typed.Details()
	}

	logFailure(ctx, logg, meta.HTTPStatus, typed, err)
	writeJSON(w, meta.HTTPStatus, types.ErrorEnvelope{Error: apiErr})
}

// logFailure keeps caller mistakes at warn so error level means the service
// or one of its dependencies misbehaved.
func logFailure(ctx context.Context, logg *logger.Logger, status int, typed *pkgerrors.Error, err error) {
	if logg == nil {
		return
	}
	dump := pkgerrors.Dump(err)
	fields := map[string]any{
		"error_code":  dump.Code,
		"error_chain": dump.Chain,
		"status":      status,
	}
	if dump.PGCode != "" {
		fields["pg_code"] = dump.PGCode
		fields["pg_constraint"] = dump.PGConstraint
		fields["pg_table"] = dump.PGTable
		fields["pg_detail"] = dump.PGDetail
	}
	if details, ok := typed.Details().(map[string]any); ok {
		if reason, ok := details["reason"]; ok {
			fields["reason"] = reason
		}
	}
	ctx = logg.WithFields(ctx, fields)

	if status < http.StatusInternalServerError {
		logg.Warn(logg.WithField(ctx, "error", dump.TopMessage), "request.rejected")
		return
	}
	logg.Error(ctx, "request.error", err)
}

func exposesMessage(code pkgerrors.Code) bool {
	switch code {
	case pkgerrors.CodeInternal, pkgerrors.CodeDependency:
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		status, body = http.StatusInternalServerError, []byte(fallbackBody)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}
