// Package logx attaches launch fields to pslog loggers.
package logx

import (
	"context"

	"pkt.systems/pslog"
)

// Ctx returns the logger bound to the provided context.
func Ctx(ctx context.Context) pslog.Logger {
	return pslog.Ctx(ctx)
}

// WithLaunch annotates the logger with the launch id if present.
func WithLaunch(log pslog.Logger, launchID string) pslog.Logger {
	if launchID != "" {
		log = log.With("launch", launchID)
	}
	return log
}

// WithProject annotates the logger with the project root and module.
func WithProject(log pslog.Logger, root, module string) pslog.Logger {
	if root != "" {
		log = log.With("project_root", root)
	}
	if module != "" {
		log = log.With("module", module)
	}
	return log
}

// ContextWithLaunch stores a launch-annotated logger on the context.
func ContextWithLaunch(ctx context.Context, launchID string) (context.Context, pslog.Logger) {
	log := WithLaunch(pslog.Ctx(ctx), launchID)
	return pslog.ContextWithLogger(ctx, log), log
}
