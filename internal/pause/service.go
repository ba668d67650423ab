package pause

import (
	"context"
	"log/slog"

	dErrors "purposepay/pkg/domain-errors"
	"purposepay/pkg/requestcontext"
)

// Store persists pause flags by module name.
type Store interface {
	SetPaused(ctx context.Context, module string, paused bool) error
	IsPaused(ctx context.Context, module string) (bool, error)
}

// Service toggles pause flags. Callers enforce who may toggle.
type Service struct {
	store  Store
	logger *slog.Logger
}

func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

func (s *Service) IsPaused(ctx context.Context, module Module) (bool, error) {
	return s.store.IsPaused(ctx, string(module))
}

func (s *Service) Set(ctx context.Context, module Module, paused bool) error {
	if !module.IsValid() {
		return dErrors.Newf(dErrors.CodeInvalidInput, "unknown module %q", module)
	}
	if err := s.store.SetPaused(ctx, string(module), paused); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to update pause state")
	}
	s.logger.InfoContext(ctx, "pause state changed",
		"module", module,
		"paused", paused,
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}

// Status reports every module's flag.
func (s *Service) Status(ctx context.Context) (map[Module]bool, error) {
	status := make(map[Module]bool, len(Modules()))
	for _, m := range Modules() {
		paused, err := s.IsPaused(ctx, m)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to read pause state")
		}
		status[m] = paused
	}
	return status, nil
}
