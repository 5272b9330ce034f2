package workunit

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mcoot/caseclicker-orchestrator/internal/model"
	"github.com/mcoot/caseclicker-orchestrator/internal/remote"
)

type auxOp struct {
	name string
	fn   func(context.Context) error
}

// Auxiliary runs the optional side activities between case cycles
type Auxiliary struct {
	logger *slog.Logger
}

// NewAuxiliary creates a new Auxiliary
func NewAuxiliary(logger *slog.Logger) *Auxiliary {
	return &Auxiliary{
		logger: logger.With(slog.String("component", "auxiliary")),
	}
}

// Run tries missions and rewards, plus the skill map in phase 3.
// Nothing here can fail the iteration: unsupported operations are skipped, other errors are logged.
func (a *Auxiliary) Run(ctx context.Context, api remote.GameAPI, phase model.Phase) int {
	ops := []auxOp{
		{"missions", api.Missions},
		{"rewards", api.ClaimRewards},
	}
	if phase == model.PhaseLevelToTarget {
		ops = append(ops, auxOp{"skillmap", api.ProgressSkillmap})
	}

	done := 0
	for _, op := range ops {
		err := op.fn(ctx)
		switch {
		case err == nil:
			done++
		case errors.Is(err, remote.ErrUnsupported):
			a.logger.Debug("skipping unsupported operation", slog.String("operation", op.name))
		default:
			a.logger.Warn("auxiliary operation failed",
				slog.String("operation", op.name),
				slog.String("error", err.Error()),
			)
		}
	}
	return done
}
