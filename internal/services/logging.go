package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// ServiceLogger provides structured logging for service layer operations
type ServiceLogger struct {
	logger *slog.Logger
}

func NewServiceLogger(logger *slog.Logger, service string) *ServiceLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &ServiceLogger{logger: logger.With("service", service)}
}

// Logger exposes the underlying slog logger
func (l *ServiceLogger) Logger() *slog.Logger {
	return l.logger
}

// ===== OPERATION LOGGING =====

// outcome classifies err into a status label and the level it is logged at
func outcome(err error) (string, slog.Level) {
	switch {
	case err == nil:
		return "success", slog.LevelInfo
	case IsValidation(err) || IsBusinessRule(err):
		return "validation_error", slog.LevelWarn
	case IsUnauthorized(err):
		return "unauthorized", slog.LevelWarn
	case IsNotFound(err):
		return "not_found", slog.LevelInfo
	case IsConflict(err):
		return "conflict", slog.LevelInfo
	}
	var permErr *PermissionError
	if errors.As(err, &permErr) {
		return "forbidden", slog.LevelWarn
	}
	return "error", slog.LevelError
}

func (l *ServiceLogger) LogOperation(ctx context.Context, operation string, userID, resourceID uuid.UUID, resourceType string, duration time.Duration, err error) {
	status, level := outcome(err)

	attrs := []slog.Attr{
		slog.String("operation", operation),
		slog.String("user_id", userID.String()),
		slog.String("resource_id", resourceID.String()),
		slog.String("resource_type", resourceType),
		slog.String("status", status),
		slog.Duration("duration", duration),
	}

	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))

		var validationErr ValidationErrors
		var businessErr *BusinessRuleError
		var permErr *PermissionError
		switch {
		case errors.As(err, &validationErr):
			attrs = append(attrs, slog.Int("validation_errors_count", len(validationErr)))
		case errors.As(err, &businessErr):
			attrs = append(attrs, slog.String("business_rule", businessErr.Rule))
		case errors.As(err, &permErr):
			attrs = append(attrs, slog.String("permission_action", permErr.Action))
		}
	}

	l.logger.LogAttrs(ctx, level, fmt.Sprintf("%s operation %s", operation, status), attrs...)
}

// ===== MIDDLEWARE AND HELPERS =====

// ContextualLogger times one operation and logs its result
type ContextualLogger struct {
	logger    *ServiceLogger
	operation string
	userID    uuid.UUID
	startTime time.Time
	ctx       context.Context
}

func (l *ServiceLogger) WithOperation(ctx context.Context, operation string, userID uuid.UUID) *ContextualLogger {
	return &ContextualLogger{
		logger:    l,
		operation: operation,
		userID:    userID,
		startTime: time.Now(),
		ctx:       ctx,
	}
}

func (cl *ContextualLogger) LogResult(resourceID uuid.UUID, resourceType string, err error) {
	cl.logger.LogOperation(cl.ctx, cl.operation, cl.userID, resourceID, resourceType, time.Since(cl.startTime), err)
}
