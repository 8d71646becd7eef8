package localenv

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/genailabs/starterkit/cmd/internal/fatal"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// DevServerCommand starts the frontend dev server without blocking the CLI.
func DevServerCommand(goos string) string {
	if goos == "windows" {
		return "npm run -w frontend dev"
	}
	return "(npm run -w frontend dev &)"
}

// CreateLocalServer refreshes the environment, serves the frontend until the
// operator presses enter, then stops the server.
func (g *Generator) CreateLocalServer(ctx context.Context, stage string) error {
	if err := g.FreePort(ctx); err != nil {
		return err
	}
	if !g.CreateLocalEnvironment(ctx, stage) {
		return nil
	}

	if err := g.runner.Run(ctx, DevServerCommand(g.GOOS)); err != nil {
		return errors.Wrap(err, "starting dev server")
	}

	select {
	case <-time.After(g.SettleDelay):
	case <-ctx.Done():
		return ctx.Err()
	}

	pauseErr := g.prompter.Pause("Press enter to continue...")
	if err := g.FreePort(ctx); err != nil {
		return err
	}
	return pauseErr
}

// FreePort kills whatever listens on the dev server port. Nothing listening
// is fine; a process that cannot be killed is fatal.
func (g *Generator) FreePort(ctx context.Context) error {
	out, err := g.runner.Output(ctx, "lsof -i :"+strconv.Itoa(g.Port)+" | grep LISTEN | awk '{print $2}'")
	if err != nil {
		g.logger.Debug("looking up port owner", zap.Int("port", g.Port), zap.Error(err))
		return nil
	}

	pids := lo.Filter(lo.Uniq(strings.Fields(out)), func(f string, _ int) bool {
		_, err := strconv.Atoi(f)
		return err == nil
	})
	if len(pids) == 0 {
		return nil
	}

	if _, err := g.runner.Output(ctx, "kill -9 "+strings.Join(pids, " ")); err != nil {
		g.rep.Error("Failed to free port %d.", g.Port)
		return fatal.Mark(errors.Wrapf(err, "freeing port %d", g.Port))
	}
	g.rep.Success("Freed port %d!", g.Port)
	return nil
}
