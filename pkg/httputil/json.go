package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	legerr "github.com/matzehuels/legsim/pkg/errors"
)

// DefaultBodyLimit caps request bodies, bytes.
const DefaultBodyLimit = 1 << 20

// ErrorBody is the JSON error envelope.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the code and a user-facing message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Status maps an error to an HTTP status code.
func Status(err error) int {
	switch code := legerr.GetCode(err); {
	case code == legerr.ErrCodeNotFound:
		return http.StatusNotFound
	case code == legerr.ErrCodeUnsupported:
		return http.StatusUnsupportedMediaType
	case legerr.IsKinematic(err), code == legerr.ErrCodeInvalidPose:
		return http.StatusUnprocessableEntity
	case code == legerr.ErrCodeInvalidInput, code == legerr.ErrCodeInvalidFormat,
		code == legerr.ErrCodeInvalidSpec, code == legerr.ErrCodeInvalidConfig:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes err in the error envelope. Internal errors are not
// echoed to the client.
func WriteError(w http.ResponseWriter, err error) int {
	status := Status(err)
	detail := ErrorDetail{Code: string(legerr.GetCode(err)), Message: legerr.UserMessage(err)}
	if status == http.StatusInternalServerError {
		detail = ErrorDetail{Code: string(legerr.ErrCodeInternal), Message: "internal error"}
	}
	WriteJSON(w, status, ErrorBody{Error: detail})
	return status
}

// DecodeJSON strictly decodes the request body into v. An empty body
// leaves v untouched.
func DecodeJSON(r *http.Request, v any) error {
	body := http.MaxBytesReader(nil, r.Body, DefaultBodyLimit)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return legerr.New(legerr.ErrCodeInvalidInput, "request body exceeds %d bytes", tooBig.Limit)
		}
		return legerr.Wrap(legerr.ErrCodeInvalidFormat, err, "decode request")
	}
	if dec.More() {
		return legerr.New(legerr.ErrCodeInvalidFormat, "unexpected data after JSON body")
	}
	return nil
}
