package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"taigabot/internal/config"
	"taigabot/internal/directory"
	"taigabot/internal/eventbus"
	"taigabot/internal/notifier"
	"taigabot/internal/relay"
	"taigabot/internal/runtime/supervisor"
	"taigabot/internal/storage"
	"taigabot/internal/transport/telegram"
	"taigabot/internal/webhook"
	"taigabot/pkg/logx"
	"taigabot/pkg/systemd"
)

type App struct {
	cfgPath string
	started time.Time

	cfgm *config.ConfigManager
	sup  *supervisor.Supervisor

	log   logx.Logger
	logs  *logx.Service
	bus   *eventbus.MemBus
	store storage.Store

	adapter *telegram.Adapter
	notif   *notifier.Service
	users   *directory.Store
	orch    *relay.Orchestrator
	server  *webhook.Server
	maint   *maintenance
	sd      *systemd.Notifier

	watchMu     sync.Mutex
	usersCancel context.CancelFunc
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	if err := ValidateRuntime(cfg); err != nil {
		return nil, err
	}

	tcfg, err := mapTelegramConfig(cfg)
	if err != nil {
		return nil, err
	}
	bootLog := logx.NewConsole("INFO").With(logx.String("comp", "telegram"))
	ad, err := telegram.New(tcfg, bootLog)
	if err != nil {
		return nil, err
	}

	// logx.New applies immediately; set the Telegram target before enabling
	// that sink so Apply does not warn about a missing chat.
	logCfg := mapLoggingConfig(cfg)
	bootCfg := logCfg
	bootCfg.Telegram.Enabled = false
	logSvc, log := logx.New(bootCfg, ad)
	logSvc.SetTelegramTarget(groupLogChat(cfg), cfg.Logging.Telegram.ThreadID)
	logSvc.Apply(logCfg)
	log = log.With(logx.String("comp", "app"))

	bus := eventbus.New()

	var store storage.Store
	if sc, enabled, err := mapStorageConfig(cfg); err != nil {
		return nil, err
	} else if enabled {
		st, err := storage.Open(sc, log)
		if err != nil {
			return nil, err
		}
		store = st
		log.Info("storage enabled", logx.String("driver", sc.Driver))
	}

	ncfg, err := mapNotifierConfig(cfg)
	if err != nil {
		return nil, err
	}
	notif := notifier.New(ncfg, ad, log.With(logx.String("comp", "notifier")), bus, store,
		notifier.WithPermanentError(telegram.IsPermanent))

	users := directory.NewStore(cfg.Users.Path, log.With(logx.String("comp", "users")), bus)
	if err := users.Load(); err != nil {
		return nil, fmt.Errorf("users: %w", err)
	}

	labels, err := LabelsFor(cfg)
	if err != nil {
		return nil, err
	}
	orch := relay.NewOrchestrator(labels, log.With(logx.String("comp", "relay")), relay.WithLogFields(requestFields))

	hcfg, err := mapHTTPConfig(cfg)
	if err != nil {
		return nil, err
	}

	a := &App{
		cfgPath: cfgPath,
		cfgm:    cfgm,
		log:     log,
		logs:    logSvc,
		bus:     bus,
		store:   store,
		adapter: ad,
		notif:   notif,
		users:   users,
		orch:    orch,
		sd:      systemd.New(log.With(logx.String("comp", "systemd"))),
	}
	disp := &relayDispatcher{orch: orch, users: users, deliver: notif, bus: bus}
	a.server = webhook.New(hcfg, disp, log, webhook.WithBus(bus), webhook.WithHealth(a.health))
	return a, nil
}

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) health() map[string]any {
	return map[string]any{
		"users":    a.users.Current().Len(),
		"notifier": a.notif.Stats(),
		"bus":      a.bus.Stats(),
		"uptime":   time.Since(a.started).Round(time.Second).String(),
	}
}

func (a *App) Start(ctx context.Context) error {
	a.started = time.Now()
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))

	// transactional config reload: validate before commit/publish
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		return a.validateReload(cfg)
	})

	if err := a.adapter.Start(a.sup.Context()); err != nil {
		return err
	}
	if a.notif.Enabled() {
		a.notif.Start(a.sup.Context())
	}
	if a.store != nil {
		m, err := startMaintenance(pruneSchedule(a.cfgm.Get()), a.store, a.log.With(logx.String("comp", "maintenance")))
		if err != nil {
			return fmt.Errorf("storage.prune_schedule: %w", err)
		}
		a.maint = m
	}

	events, unsub := a.bus.Subscribe(128)
	busLog := a.log.With(logx.String("comp", "eventbus"))
	a.sup.Go0("eventbus.log", func(c context.Context) {
		defer unsub()
		eventbus.Consume(c, events, func(e eventbus.Event) { logBusEvents(busLog, e) })
	})

	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		lastApplied := a.cfgm.Get()
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				// keep only the latest of a burst
			drain:
				for {
					select {
					case newer := <-sub:
						if newer != nil {
							newCfg = newer
						}
					default:
						break drain
					}
				}
				a.applyConfig(c, lastApplied, newCfg)
				lastApplied = newCfg
			}
		}
	})

	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})
	a.setUsersWatch(a.cfgm.Get().Users.Watch)

	if err := a.server.Start(a.sup.Context()); err != nil {
		return fmt.Errorf("http: %w", err)
	}

	a.sd.Ready()
	a.sd.Status(fmt.Sprintf("serving %d users", a.users.Current().Len()))
	a.sup.Go0("systemd.watchdog", a.sd.Watchdog)

	a.log.Info("app started", logx.String("addr", a.server.Addr()), logx.Int("users", a.users.Current().Len()))
	return nil
}

// setUsersWatch starts or stops the users file watcher. A running watcher is
// always replaced so a new users.path is picked up.
func (a *App) setUsersWatch(enabled bool) {
	a.watchMu.Lock()
	defer a.watchMu.Unlock()
	if a.usersCancel != nil {
		a.usersCancel()
		a.usersCancel = nil
	}
	if !enabled || a.sup == nil {
		return
	}
	wctx, cancel := context.WithCancel(a.sup.Context())
	a.usersCancel = cancel
	a.sup.Go("users.watch", func(context.Context) error {
		err := a.users.Watch(wctx, 0)
		if wctx.Err() != nil {
			return nil
		}
		return err
	})
}

func (a *App) validateReload(cfg *config.Config) error {
	if err := ValidateRuntime(cfg); err != nil {
		return err
	}
	if cur := a.cfgm.Get(); cur == nil || cur.Users.Path != cfg.Users.Path {
		if _, err := directory.ReadFile(cfg.Users.Path); err != nil {
			return fmt.Errorf("users.path: %w", err)
		}
	}
	return nil
}

// applyConfig pushes a committed config into the live components.
func (a *App) applyConfig(ctx context.Context, oldCfg, newCfg *config.Config) {
	sections, attrs := config.SummarizeConfigChange(oldCfg, newCfg)
	if len(sections) == 0 {
		a.log.Info("config reloaded (no changes)")
		return
	}
	if restart := config.RestartRequired(sections); len(restart) > 0 {
		a.log.Warn("config sections changed that need a restart to take effect", logx.Strings("sections", restart))
	}

	a.logs.SetTelegramTarget(groupLogChat(newCfg), newCfg.Logging.Telegram.ThreadID)
	a.logs.Apply(mapLoggingConfig(newCfg))

	if labels, err := LabelsFor(newCfg); err != nil {
		a.log.Warn("invalid relay config; keeping previous labels", logx.Err(err))
	} else {
		a.orch.SetLabels(labels)
	}

	if oldCfg == nil || oldCfg.Users != newCfg.Users {
		if err := a.users.SetPath(newCfg.Users.Path); err != nil {
			a.log.Warn("users.path change rejected; keeping previous directory", logx.Err(err))
		}
		a.setUsersWatch(newCfg.Users.Watch)
	}

	prevEnabled := a.notif.Enabled()
	if ncfg, err := mapNotifierConfig(newCfg); err != nil {
		a.log.Warn("invalid notifier config; keeping previous", logx.Err(err))
	} else {
		a.notif.Apply(ncfg)
		switch {
		case prevEnabled && !ncfg.Enabled:
			a.log.Info("notifier disabled via config; delivering synchronously")
			stopCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			a.notif.Stop(stopCtx)
			cancel()
		case !prevEnabled && ncfg.Enabled:
			a.log.Info("notifier enabled via config")
			a.notif.Start(ctx)
		}
	}

	eventbus.Publish(a.bus, eventbus.TopicConfigApplied, sections)
	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Info("config reloaded", fields...)
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))
	a.sd.Stopping()

	// run a shutdown step with an upper bound so one component can't stall the whole stop
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		if dl, ok := ctx.Deadline(); ok {
			if rem := time.Until(dl); rem < max {
				max = rem
			}
		}
		if max <= 0 {
			a.log.Warn("stop step skipped, no time left", logx.String("name", name))
			return
		}
		stepCtx, cancel := context.WithTimeout(ctx, max)
		defer cancel()

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)", logx.String("name", name), logx.Duration("elapsed", time.Since(start)))
		}
	}

	// intake first so no new events arrive while the queue drains
	step("http", 3*time.Second, a.server.Stop)
	step("notifier", 3*time.Second, func(c context.Context) error { a.notif.Stop(c); return nil })
	a.sup.Cancel()
	step("maintenance", time.Second, a.maint.Stop)
	step("adapter", 2*time.Second, a.adapter.Stop)
	step("storage", time.Second, func(context.Context) error {
		if a.store != nil {
			return a.store.Close()
		}
		return nil
	})
	step("supervisor", 2*time.Second, a.sup.Wait)

	a.log.Info("stopped")
	return a.logs.Close()
}
