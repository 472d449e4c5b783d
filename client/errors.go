package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	auth "github.com/tokenestate/go-estate-auth"
)

// ErrBackend is returned for backend responses outside the identity taxonomy
var ErrBackend = goerrors.New("backend request failed", goerrors.CategoryOperation).
	WithTextCode("BACKEND_ERROR").
	WithCode(goerrors.CodeInternal)

// ErrForbidden is returned when the session lacks the role for an endpoint
var ErrForbidden = goerrors.New("forbidden", goerrors.CategoryAuthz).
	WithTextCode("FORBIDDEN").
	WithCode(goerrors.CodeForbidden)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// mapStatus turns a non-2xx response into the error taxonomy: 404 is
// NotFound, 401 is Unauthorized, 400/422 is Validation.
func mapStatus(method, path string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := serverMessage(raw)
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	meta := map[string]any{
		"method": method,
		"path":   path,
		"status": resp.StatusCode,
	}
	cause := fmt.Errorf("%s %s: %d %s", method, path, resp.StatusCode, msg)

	switch resp.StatusCode {
	case http.StatusNotFound:
		return auth.NewKindError(auth.ErrNotFound, cause, msg, meta)
	case http.StatusUnauthorized:
		return auth.NewKindError(auth.ErrUnauthorized, cause, msg, meta)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return auth.NewKindError(auth.ErrValidation, cause, msg, meta)
	case http.StatusForbidden:
		return auth.NewKindError(ErrForbidden, cause, msg, meta)
	default:
		return auth.NewKindError(ErrBackend, cause, msg, meta)
	}
}

func serverMessage(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	var body errorBody
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return strings.TrimSpace(string(raw))
}

// IsForbidden reports whether err is a 403 from the backend
func IsForbidden(err error) bool {
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return rich.TextCode == ErrForbidden.TextCode
	}
	return false
}
