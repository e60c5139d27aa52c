// Package reverts holds the error type returned when an escrow or distributor call is rejected.
// A revert always aborts the whole call; nothing it touched is committed.
package reverts

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation       Kind = "validation"
	KindState            Kind = "state"
	KindAuthorization    Kind = "authorization"
	KindExternalTransfer Kind = "external_transfer"
)

// Sentinels for errors.Is matching by kind.
var (
	ErrValidation       = &Revert{Kind: KindValidation}
	ErrState            = &Revert{Kind: KindState}
	ErrAuthorization    = &Revert{Kind: KindAuthorization}
	ErrExternalTransfer = &Revert{Kind: KindExternalTransfer}
)

type Revert struct {
	Kind    Kind
	Message string
	cause   error
}

func (r *Revert) Error() string {
	if r.cause != nil {
		return fmt.Sprintf("%s: %s: %v", r.Kind, r.Message, r.cause)
	}
	return fmt.Sprintf("%s: %s", r.Kind, r.Message)
}

func (r *Revert) Unwrap() error {
	return r.cause
}

// Is matches any revert of the same kind, so callers can test against the sentinels.
func (r *Revert) Is(target error) bool {
	t, ok := target.(*Revert)
	if !ok {
		return false
	}
	return t.Kind == r.Kind && (t.Message == "" || t.Message == r.Message)
}

func Validation(format string, args ...any) *Revert {
	return &Revert{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func State(format string, args ...any) *Revert {
	return &Revert{Kind: KindState, Message: fmt.Sprintf(format, args...)}
}

func Authorization(format string, args ...any) *Revert {
	return &Revert{Kind: KindAuthorization, Message: fmt.Sprintf(format, args...)}
}

func ExternalTransfer(cause error, format string, args ...any) *Revert {
	return &Revert{Kind: KindExternalTransfer, Message: fmt.Sprintf(format, args...), cause: cause}
}

func IsRevertErr(err any) bool {
	if err == nil {
		return false
	}
	e, ok := err.(error)
	if !ok {
		return false
	}
	var r *Revert
	return errors.As(e, &r)
}

// KindOf returns the kind of the first revert in the chain, or "" for infrastructure errors.
func KindOf(err error) Kind {
	var r *Revert
	if errors.As(err, &r) {
		return r.Kind
	}
	return ""
}
