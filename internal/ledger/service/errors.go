package service

import (
	"purposepay/internal/ledger/models"
	dErrors "purposepay/pkg/domain-errors"
)

var (
	ErrUnauthorized       = dErrors.New(dErrors.CodeForbidden, "caller is not the administrator")
	ErrTransferRestricted = dErrors.New(dErrors.CodeForbidden, "transfer restricted: recipient is not an approved merchant")
	ErrZeroRecipient      = dErrors.New(dErrors.CodeValidation, "recipient cannot be the zero address")
)

// ErrInsufficientBalance is re-exported for callers that only import the service.
var ErrInsufficientBalance = models.ErrInsufficientBalance

func wrapStoreErr(err error, msg string) error {
	if err == nil {
		return nil
	}
	if _, coded := dErrors.As(err); coded {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

// ErrPauseUnavailable is returned by Pause/Unpause when no pause store is
// configured.
var ErrPauseUnavailable = dErrors.New(dErrors.CodeUnavailable, "pause control is not configured")
