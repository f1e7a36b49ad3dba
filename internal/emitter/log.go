package emitter

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/yairfalse/idler/pkg/resource"
)

// LogEmitter writes one structured log line per query.
type LogEmitter struct {
	logger zerolog.Logger
}

// NewLogEmitter creates a log emitter.
func NewLogEmitter(logger zerolog.Logger) *LogEmitter {
	return &LogEmitter{logger: logger}
}

// Emit logs the result. Failures are logged at warn level and never returned.
func (e *LogEmitter) Emit(ctx context.Context, result resource.SourceResult) error {
	if !result.OK() {
		e.logger.Warn().
			Ctx(ctx).
			Err(result.Err).
			Str("provider", result.Provider).
			Str("region", result.Region).
			Str("type", string(result.Type)).
			Dur("duration", result.Duration).
			Msg("query failed")
		return nil
	}

	e.logger.Info().
		Ctx(ctx).
		Str("provider", result.Provider).
		Str("region", result.Region).
		Str("type", string(result.Type)).
		Int("resources", len(result.Resources)).
		Dur("duration", result.Duration).
		Msg("query complete")
	return nil
}

// Close is a no-op.
func (e *LogEmitter) Close() error {
	return nil
}
