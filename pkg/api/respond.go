package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	errs "github.com/matzehuels/memeforge/pkg/errors"
	"github.com/matzehuels/memeforge/pkg/publish"
)

// statusFor maps an error code to an HTTP status.
func statusFor(code errs.Code) int {
	switch code {
	case errs.ErrCodeInvalidInput, errs.ErrCodeInvalidFormat, errs.ErrCodeInvalidURL,
		errs.ErrCodeInvalidColor, errs.ErrCodeInvalidFont, errs.ErrCodeInvalidEmail,
		errs.ErrCodeUnsupported:
		return http.StatusBadRequest
	case errs.ErrCodeUnauthorized, errs.ErrCodeInvalidCode, errs.ErrCodeSessionExpired,
		errs.ErrCodeSessionNotFound:
		return http.StatusUnauthorized
	case errs.ErrCodeForbidden:
		return http.StatusForbidden
	case errs.ErrCodeNotFound, errs.ErrCodeMemeNotFound:
		return http.StatusNotFound
	case errs.ErrCodePublishInProgress:
		return http.StatusConflict
	case errs.ErrCodeImageTooLarge:
		return http.StatusRequestEntityTooLarge
	case errs.ErrCodeImageLoad, errs.ErrCodeNoBaseImage:
		return http.StatusUnprocessableEntity
	case errs.ErrCodeNetwork:
		return http.StatusBadGateway
	case errs.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes err as an ErrorBody. Errors without a code are reported
// as internal errors without their text.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := errs.GetCode(err)
	body := ErrorBody{Code: string(code), Message: errs.UserMessage(err)}
	if code == "" {
		body = ErrorBody{Code: string(errs.ErrCodeInternal), Message: "internal error"}
	}
	status := statusFor(errs.Code(body.Code))
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		s.logger.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "code", body.Code)
	}
	writeJSON(w, status, body)
}

// decodeJSON reads a JSON body of at most s.maxBody bytes into v.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return errs.Wrap(errs.ErrCodeImageTooLarge, err, publish.TooLargeMessage)
		case errors.Is(err, io.EOF):
			return errs.New(errs.ErrCodeInvalidInput, "request body is empty")
		}
		return errs.Wrap(errs.ErrCodeInvalidFormat, err, "invalid JSON body")
	}
	return nil
}
