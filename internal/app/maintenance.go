package app

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"taigabot/internal/storage"
	"taigabot/pkg/logx"
)

const pruneTimeout = 30 * time.Second

// cronLogger routes robfig/cron's own logging into logx.
type cronLogger struct{ log logx.Logger }

func (l cronLogger) Info(msg string, kv ...interface{}) {
	l.log.Debug(msg, logx.Any("kv", kv))
}

func (l cronLogger) Error(err error, msg string, kv ...interface{}) {
	l.log.Error(msg, logx.Err(err), logx.Any("kv", kv))
}

// maintenance runs periodic storage housekeeping.
type maintenance struct {
	c   *cron.Cron
	log logx.Logger
}

// startMaintenance schedules PruneExpired on spec (standard cron syntax or
// a descriptor such as @hourly).
func startMaintenance(spec string, store storage.Store, log logx.Logger) (*maintenance, error) {
	cl := cronLogger{log: log}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	m := &maintenance{c: c, log: log}
	if _, err := c.AddFunc(spec, func() { m.prune(store) }); err != nil {
		return nil, err
	}
	c.Start()
	log.Info("storage maintenance scheduled", logx.String("schedule", spec))
	return m, nil
}

func (m *maintenance) prune(store storage.Store) {
	ctx, cancel := context.WithTimeout(context.Background(), pruneTimeout)
	defer cancel()

	start := time.Now()
	n, err := store.PruneExpired(ctx, start)
	if err != nil {
		m.log.Warn("dedup prune failed", logx.Err(err))
		return
	}
	m.log.Debug("dedup prune done", logx.Int("removed", n), logx.Duration("took", time.Since(start)))
}

// Stop waits for a running prune, bounded by ctx.
func (m *maintenance) Stop(ctx context.Context) error {
	if m == nil {
		return nil
	}
	select {
	case <-m.c.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
