package claim

import (
	"context"
	"log/slog"
)

// LogRunner is an ActionRunner for hosts without a command dispatcher. It only logs
// the rendered commands.
type LogRunner struct {
	Log *slog.Logger
}

func (l LogRunner) Run(ctx context.Context, target string, commands []string) error {
	log := l.Log
	if log == nil {
		log = slog.Default()
	}
	for _, cmd := range commands {
		log.Info("Reward action", "target", target, "command", cmd)
	}
	return nil
}
