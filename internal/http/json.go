package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	apperrors "github.com/target/helpdesk-portal/internal/errors"
)

const maxRequestBytes = 64 << 10

// DecodeJSON reads exactly one JSON value from the body into dst. Unknown
// fields, trailing data and bodies over 64KiB are rejected with a 400; the
// caller only has to return when it reports false.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	switch {
	case errors.Is(err, io.EOF):
		err = errors.New("request body is empty")
	case err == nil && dec.More():
		err = errors.New("request body must hold a single JSON value")
	}
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_json", Err: err})
		return false
	}
	return true
}

// WriteJSON encodes v before touching the response so an encoding failure
// can still become a clean 500.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(append(body, '\n'))
}

// ErrorParams groups parameters for WriteError.
type ErrorParams struct {
	Code    int
	ErrCode string
	Err     error
}

// WriteError writes a JSON error response using ErrorParams.
func WriteError(w http.ResponseWriter, p ErrorParams) {
	WriteJSON(w, p.Code, errorBody{Error: p.ErrCode, Message: p.Err.Error()})
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// WriteAppError writes err with a status derived from its code. The message is
// always the user-facing one; causes are never sent to the client.
func WriteAppError(w http.ResponseWriter, err error) {
	code := apperrors.GetCode(err)
	if code == "" {
		WriteJSON(w, http.StatusInternalServerError, errorBody{
			Error:   "internal_error",
			Message: http.StatusText(http.StatusInternalServerError),
		})
		return
	}
	WriteJSON(w, statusForCode(code), errorBody{
		Error:   string(code),
		Message: apperrors.UserMessage(err),
		Field:   apperrors.GetField(err),
	})
}

func statusForCode(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrCodeValidation:
		return http.StatusBadRequest
	case apperrors.ErrCodeInvalidCredentials,
		apperrors.ErrCodeNotAuthenticated,
		apperrors.ErrCodeSessionExpired,
		apperrors.ErrCodeRefreshFailed:
		return http.StatusUnauthorized
	case apperrors.ErrCodeServerUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
