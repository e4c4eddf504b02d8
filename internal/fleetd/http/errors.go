package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/piragazh/feasto-signage/api/types/v1alpha1"
	werrors "github.com/piragazh/feasto-signage/internal/fleetd/errors"
)

// statusFor maps an error code to its HTTP status
func statusFor(code string) int {
	switch code {
	case werrors.CodeNotFound:
		return http.StatusNotFound
	case werrors.CodeInvalidInput:
		return http.StatusBadRequest
	case werrors.CodeConflict, werrors.CodeVersionConflict:
		return http.StatusConflict
	case werrors.CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// errorBody derives the response status and body. Classification follows
// the sentinel chain so wrapped repository errors keep their meaning;
// unclassified failures are reported without detail.
func errorBody(err error) (int, v1alpha1.Error) {
	var code string
	switch {
	case werrors.IsNotFound(err):
		code = werrors.CodeNotFound
	case werrors.IsVersionMismatch(err):
		code = werrors.CodeVersionConflict
	case werrors.IsConflict(err):
		code = werrors.CodeConflict
	case werrors.IsInvalidInput(err):
		code = werrors.CodeInvalidInput
	case werrors.IsRateLimited(err):
		code = werrors.CodeRateLimited
	default:
		return http.StatusInternalServerError, v1alpha1.Error{
			Code:    werrors.CodeInternal,
			Message: "internal server error",
		}
	}

	msg := err.Error()
	var e *werrors.Error
	if errors.As(err, &e) && e.Message != "" {
		msg = e.Message
	}
	return statusFor(code), v1alpha1.Error{Code: code, Message: msg}
}

func writeError(w http.ResponseWriter, err error, logger zerolog.Logger) {
	status, body := errorBody(err)
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("code", body.Code).Msg("request failed")
	} else {
		logger.Debug().Err(err).Str("code", body.Code).Msg("request rejected")
	}
	writeJSON(w, status, body, logger)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}, logger zerolog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error().Err(err).Msg("failed to encode response")
	}
}

// decodeJSON reads a request body into v
func decodeJSON(w http.ResponseWriter, r *http.Request, op string, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return werrors.NewError(werrors.CodeInvalidInput, "invalid request body: "+err.Error(), op, werrors.ErrInvalidInput)
	}
	return nil
}

func invalid(op, msg string) error {
	return werrors.Validation(op, msg)
}
