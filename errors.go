package auth

import (
	"errors"
	"fmt"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeNotFound          = "IDENTITY_NOT_FOUND"
	TextCodeUnauthorized      = "IDENTITY_UNAUTHORIZED"
	TextCodeNetwork           = "NETWORK_FAILURE"
	TextCodeValidation        = "INVALID_IDENTITY_TOKEN"
	TextCodeChainTransaction  = "CHAIN_TRANSACTION_FAILED"
	TextCodePartialSync       = "ROLE_PARTIAL_SYNC"
	TextCodeProvisionFailed   = "AUTO_PROVISION_FAILED"
	TextCodeInvalidTransition = "INVALID_AUTH_STATE_TRANSITION"
)

// ErrNotFound is returned when the backend does not know the identity
var ErrNotFound = goerrors.New("identity not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrUnauthorized is returned when the identity is rejected or expired
var ErrUnauthorized = goerrors.New("identity rejected", goerrors.CategoryAuth).
	WithTextCode(TextCodeUnauthorized).
	WithCode(goerrors.CodeUnauthorized)

// ErrNetwork is returned for transport failures where no response arrived
var ErrNetwork = goerrors.New("network failure", goerrors.CategoryOperation).
	WithTextCode(TextCodeNetwork).
	WithCode(goerrors.CodeInternal)

// ErrValidation is returned for malformed identity tokens and requests
var ErrValidation = goerrors.New("invalid identity token", goerrors.CategoryValidation).
	WithTextCode(TextCodeValidation).
	WithCode(goerrors.CodeBadRequest)

// ErrChainTransaction is returned when a transaction reverts or the signer rejects it
var ErrChainTransaction = goerrors.New("chain transaction failed", goerrors.CategoryOperation).
	WithTextCode(TextCodeChainTransaction).
	WithCode(goerrors.CodeInternal)

// ErrPartialSync marks an on-chain grant whose backend mirror failed. It is
// attached to sync reports and never returned from an operation.
var ErrPartialSync = goerrors.New("on-chain grant succeeded but backend mirror failed", goerrors.CategoryConflict).
	WithTextCode(TextCodePartialSync).
	WithCode(goerrors.CodeConflict)

// ErrInvalidTransition is returned when the auth state is asked to move along
// an edge that does not exist.
var ErrInvalidTransition = goerrors.New("invalid auth state transition", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidTransition).
	WithCode(goerrors.CodeBadRequest)

// kindError ties a taxonomy sentinel to the underlying cause so both are
// reachable through errors.Is / errors.As.
type kindError struct {
	kind  *goerrors.Error
	cause error
}

func (k *kindError) Error() string {
	if k.cause == nil {
		return k.kind.Message
	}
	return fmt.Sprintf("%s: %v", k.kind.Message, k.cause)
}

func (k *kindError) Unwrap() []error {
	if k.cause == nil {
		return []error{k.kind}
	}
	return []error{k.kind, k.cause}
}

// NewKindError clones the sentinel, attaching the cause, a message and
// optional metadata.
func NewKindError(kind *goerrors.Error, cause error, message string, metadata map[string]any) error {
	clone := kind.Clone()
	if clone == nil {
		return kind
	}
	if message != "" {
		clone.Message = message
	}
	clone.Source = &kindError{kind: kind, cause: cause}
	if len(metadata) > 0 {
		clone.WithMetadata(metadata)
	}
	return clone
}

// NotFoundError wraps cause as ErrNotFound
func NotFoundError(cause error, message string) error {
	return NewKindError(ErrNotFound, cause, message, nil)
}

// UnauthorizedError wraps cause as ErrUnauthorized
func UnauthorizedError(cause error, message string) error {
	return NewKindError(ErrUnauthorized, cause, message, nil)
}

// NetworkError wraps cause as ErrNetwork
func NetworkError(cause error, message string) error {
	return NewKindError(ErrNetwork, cause, message, nil)
}

// ValidationError wraps cause as ErrValidation
func ValidationError(cause error, message string) error {
	return NewKindError(ErrValidation, cause, message, nil)
}

// ChainTransactionError wraps cause as ErrChainTransaction
func ChainTransactionError(cause error, message string, metadata map[string]any) error {
	return NewKindError(ErrChainTransaction, cause, message, metadata)
}

func hasKind(err error, kind *goerrors.Error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, kind) {
		return true
	}
	var rich *goerrors.Error
	if errors.As(err, &rich) && rich != nil {
		return rich.TextCode == kind.TextCode
	}
	return false
}

// IsNotFound reports whether err is (or wraps) ErrNotFound
func IsNotFound(err error) bool { return hasKind(err, ErrNotFound) }

// IsUnauthorized reports whether err is (or wraps) ErrUnauthorized
func IsUnauthorized(err error) bool { return hasKind(err, ErrUnauthorized) }

// IsNetwork reports whether err is (or wraps) ErrNetwork
func IsNetwork(err error) bool { return hasKind(err, ErrNetwork) }

// IsValidation reports whether err is (or wraps) ErrValidation
func IsValidation(err error) bool { return hasKind(err, ErrValidation) }

// IsChainTransaction reports whether err is (or wraps) ErrChainTransaction
func IsChainTransaction(err error) bool { return hasKind(err, ErrChainTransaction) }

// ErrorKind names the taxonomy class of err, "unknown" when unclassified.
func ErrorKind(err error) string {
	var perr *ProvisionError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &perr):
		return TextCodeProvisionFailed
	case IsValidation(err):
		return TextCodeValidation
	case IsNotFound(err):
		return TextCodeNotFound
	case IsUnauthorized(err):
		return TextCodeUnauthorized
	case IsNetwork(err):
		return TextCodeNetwork
	case IsChainTransaction(err):
		return TextCodeChainTransaction
	default:
		return "unknown"
	}
}

// ProvisionError is returned by LoginOrCreate when the auto-provision path
// could not produce a session. It names the original login failure and
// whichever step of the recovery failed.
type ProvisionError struct {
	Wallet   string
	Original error
	Create   error
	Retry    error
}

func (e *ProvisionError) Error() string {
	parts := []string{}
	if e.Create != nil {
		parts = append(parts, fmt.Sprintf("create user: %v", e.Create))
	}
	if e.Retry != nil {
		parts = append(parts, fmt.Sprintf("login after create: %v", e.Retry))
	}
	if e.Original != nil {
		parts = append(parts, fmt.Sprintf("original login: %v", e.Original))
	}
	return "auto-provision failed: " + strings.Join(parts, "; ")
}

func (e *ProvisionError) Unwrap() []error {
	out := make([]error, 0, 3)
	for _, err := range []error{e.Create, e.Retry, e.Original} {
		if err != nil {
			out = append(out, err)
		}
	}
	return out
}

// Metadata exposes the failure for structured logging
func (e *ProvisionError) Metadata() map[string]any {
	meta := map[string]any{"wallet": e.Wallet}
	if e.Original != nil {
		meta["original"] = e.Original.Error()
	}
	if e.Create != nil {
		meta["create"] = e.Create.Error()
	}
	if e.Retry != nil {
		meta["retry"] = e.Retry.Error()
	}
	return meta
}
