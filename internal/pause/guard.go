// Package pause holds the circuit-breaker flags that stop ledger transfers and
// whitelist mutations while an administrator investigates.
package pause

import (
	"context"

	dErrors "purposepay/pkg/domain-errors"
)

// Module names a pausable surface.
type Module string

const (
	ModuleTransfers Module = "transfers"
	ModuleWhitelist Module = "whitelist"
)

// Modules lists every pausable surface.
func Modules() []Module {
	return []Module{ModuleTransfers, ModuleWhitelist}
}

func (m Module) IsValid() bool {
	return m == ModuleTransfers || m == ModuleWhitelist
}

// ErrModulePaused is returned by Guard when the module is paused.
var ErrModulePaused = dErrors.New(dErrors.CodeConflict, "module paused")

// View reports pause state.
type View interface {
	IsPaused(ctx context.Context, module Module) (bool, error)
}

// Guard fails with ErrModulePaused when module is paused. A nil view means
// pausing is not configured.
func Guard(ctx context.Context, v View, module Module) error {
	if v == nil || module == "" {
		return nil
	}
	paused, err := v.IsPaused(ctx, module)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to read pause state")
	}
	if paused {
		return ErrModulePaused
	}
	return nil
}
