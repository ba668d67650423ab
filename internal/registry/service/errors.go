package service

import (
	"errors"

	dErrors "purposepay/pkg/domain-errors"
	"purposepay/pkg/platform/sentinel"
)

// Registry failures. All are coded so handlers map them to HTTP status, and
// comparable with errors.Is.
var (
	ErrIdentityAlreadyRegistered = dErrors.New(dErrors.CodeConflict, "identity already registered")
	ErrIdentityNotFound          = dErrors.New(dErrors.CodeNotFound, "identity not found")
	ErrIndexOutOfRange           = dErrors.New(dErrors.CodeOutOfRange, "transaction index out of range")
	ErrUnauthorized              = dErrors.New(dErrors.CodeForbidden, "caller is not authorized")
)

// errSkip aborts an Execute validation without surfacing an error.
var errSkip = errors.New("skip")

func wrapStoreErr(err error, msg string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errSkip):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return ErrIdentityNotFound
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return ErrIdentityAlreadyRegistered
	}
	if _, coded := dErrors.As(err); coded {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
