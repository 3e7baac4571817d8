package service

import (
	"context"

	"scan2cal/calendar-app/internal/logging"
)

// serviceLogger prefers the request logger from ctx and tags it with the
// service and operation names.
func serviceLogger(ctx context.Context, base logging.Logger, serviceName, operation string, attrs ...any) logging.Logger {
	pairs := []any{"service", serviceName}
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	pairs = append(pairs, attrs...)
	return logging.FromContextOr(ctx, base).With(pairs...)
}

// logFailure records err at a level matching how surprising it is.
func logFailure(ctx context.Context, log logging.Logger, msg string, err error) {
	kind := ErrorKind(err)
	switch kind {
	case "infrastructure", "unexpected", "model_unavailable", "invalid_model_output":
		log.Error(ctx, msg, "kind", kind, "error", err)
	default:
		log.Warn(ctx, msg, "kind", kind, "error", err)
	}
}
