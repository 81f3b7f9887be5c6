package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taigabot/internal/config"
	"taigabot/internal/directory"
	"taigabot/internal/eventbus"
	"taigabot/internal/relay"
	"taigabot/internal/storage"
	"taigabot/internal/webhook"
	"taigabot/pkg/logx"
)

func TestMapNotifierConfigDefaults(t *testing.T) {
	nc, err := mapNotifierConfig(&config.Config{})
	require.NoError(t, err)
	assert.True(t, nc.Enabled)
	assert.Equal(t, 2, nc.Workers)
	assert.Equal(t, 512, nc.QueueSize)
	assert.Equal(t, 500*time.Millisecond, nc.RetryBase)
	assert.Equal(t, time.Minute, nc.DedupWindow)

	nc, err = mapNotifierConfig(&config.Config{Notifier: &config.NotifierConfig{Enabled: true, Workers: 5, DedupWindow: "5m"}})
	require.NoError(t, err)
	assert.Equal(t, 5, nc.Workers)
	assert.Equal(t, 3, nc.RatePerSec)
	assert.Equal(t, 5*time.Minute, nc.DedupWindow)

	_, err = mapNotifierConfig(&config.Config{Notifier: &config.NotifierConfig{RetryBase: "soon"}})
	assert.ErrorContains(t, err, "notifier.retry_base")
}

func TestMapStorageConfig(t *testing.T) {
	_, enabled, err := mapStorageConfig(&config.Config{})
	require.NoError(t, err)
	assert.False(t, enabled)

	sc, enabled, err := mapStorageConfig(&config.Config{Storage: &config.StorageConfig{Driver: "SQLite", Path: "x.db"}})
	require.NoError(t, err)
	assert.True(t, enabled)
	assert.Equal(t, storage.Config{Driver: "sqlite", Path: "x.db", BusyTimeout: time.Second}, sc)

	_, _, err = mapStorageConfig(&config.Config{Storage: &config.StorageConfig{Driver: "sqlite"}})
	assert.ErrorContains(t, err, "storage.path")

	_, _, err = mapStorageConfig(&config.Config{Storage: &config.StorageConfig{Driver: "redis"}})
	assert.ErrorContains(t, err, "unknown storage.driver")

	assert.Equal(t, "@hourly", pruneSchedule(&config.Config{}))
	assert.Equal(t, "*/5 * * * *", pruneSchedule(&config.Config{Storage: &config.StorageConfig{PruneSchedule: " */5 * * * * "}}))
}

func TestLabelsFor(t *testing.T) {
	l, err := LabelsFor(&config.Config{Relay: config.RelayConfig{StatusLabels: map[string]string{"Blocked": "Заблокирована"}}})
	require.NoError(t, err)
	assert.Equal(t, "ru", l.Locale)
	assert.Equal(t, "Заблокирована", l.TranslateStatus("Blocked"))
	assert.Equal(t, "Новая", l.TranslateStatus("New"))

	_, err = LabelsFor(&config.Config{Relay: config.RelayConfig{Locale: "fr"}})
	assert.ErrorContains(t, err, `unknown locale "fr"`)
	assert.Error(t, ValidateRuntime(&config.Config{Relay: config.RelayConfig{Locale: "fr"}}))
}

func TestMapHTTPConfig(t *testing.T) {
	hc, err := mapHTTPConfig(&config.Config{HTTP: config.HTTPConfig{Addr: ":9000", ReadTimeout: "3s"}})
	require.NoError(t, err)
	assert.Equal(t, ":9000", hc.Addr)
	assert.Equal(t, 3*time.Second, hc.ReadTimeout)
	assert.Equal(t, webhook.DefaultTimeout, hc.WriteTimeout)
}

func TestGroupLogChat(t *testing.T) {
	assert.Equal(t, int64(-100123), groupLogChat(&config.Config{Telegram: config.TelegramConfig{GroupLog: " -100123 "}}))
	assert.Equal(t, int64(0), groupLogChat(&config.Config{}))
}

func TestStopReasonFromSignal(t *testing.T) {
	assert.Equal(t, StopSIGINT, StopReasonFromSignal(os.Interrupt))
	assert.Equal(t, StopSIGTERM, StopReasonFromSignal(syscall.SIGTERM))
	assert.Equal(t, StopUnknown, StopReasonFromSignal(syscall.SIGHUP))
}

type delivery struct{ address, text string }

func TestRelayDispatcherPublishesPlan(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "users.yaml")
	require.NoError(t, os.WriteFile(path, []byte("users: {7: {username: alice, telegram_id: 1001}}"), 0o644))
	users := directory.NewStore(path, logx.Nop(), nil)
	require.NoError(t, users.Load())

	bus := eventbus.New()
	ch, unsub := bus.Subscribe(4)
	defer unsub()

	var (
		mu   sync.Mutex
		sent []delivery
	)
	d := &relayDispatcher{
		orch:  relay.NewOrchestrator(mustLabels(t), logx.Nop()),
		users: users,
		deliver: relay.DelivererFunc(func(_ context.Context, address, text string) error {
			mu.Lock()
			sent = append(sent, delivery{address, text})
			mu.Unlock()
			return nil
		}),
		bus: bus,
	}

	ev, err := relay.DecodeEvent([]byte(`{"action":"change","type":"task","data":{"subject":"Fix bug","permalink":"https://t/p/task/42","assigned_to":{"id":7}},"change":{"comment":"@alice look","diff":{"assigned_to":{}}}}`))
	require.NoError(t, err)

	ctx := webhook.WithRequestID(context.Background(), "req-1")
	require.NoError(t, d.Dispatch(ctx, ev))

	mu.Lock()
	assert.Len(t, sent, 3)
	mu.Unlock()

	select {
	case e := <-ch:
		require.Equal(t, eventbus.TopicDispatchPlanned, e.Type)
		p, ok := e.Data.(Planned)
		require.True(t, ok)
		assert.Equal(t, "req-1", p.RequestID)
		assert.Equal(t, []string{"mention", "comment", "assignment"}, p.Categories)
		assert.Equal(t, 3, p.Instructions)
		assert.False(t, p.Failed)
	case <-time.After(time.Second):
		t.Fatal("no dispatch.planned event")
	}
}

func mustLabels(t *testing.T) relay.Labels {
	t.Helper()
	l, err := LabelsFor(&config.Config{})
	require.NoError(t, err)
	return l
}

type pruneCounter struct {
	storage.Store
	mu    sync.Mutex
	calls int
}

func (p *pruneCounter) PruneExpired(context.Context, time.Time) (int, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	return 1, nil
}

func (p *pruneCounter) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func TestMaintenanceRunsPrune(t *testing.T) {
	st := &pruneCounter{}
	m, err := startMaintenance("@every 1s", st, logx.Nop())
	require.NoError(t, err)
	defer func() { _ = m.Stop(context.Background()) }()

	assert.Eventually(t, func() bool { return st.Calls() >= 1 }, 3*time.Second, 50*time.Millisecond)
}

func TestMaintenanceRejectsBadSchedule(t *testing.T) {
	_, err := startMaintenance("every tuesday", &pruneCounter{}, logx.Nop())
	assert.Error(t, err)
}

func TestLogBusEvents(t *testing.T) {
	var buf bytes.Buffer
	log := logx.NewJSON(&buf, "warn")

	logBusEvents(log, eventbus.Event{Type: eventbus.TopicNotifierSent})
	assert.Empty(t, buf.String())

	logBusEvents(log, eventbus.Event{Type: eventbus.TopicNotifierFailed, Data: map[string]any{"chat_id": 1}})
	assert.Contains(t, buf.String(), "notification not delivered")
	assert.Contains(t, buf.String(), eventbus.TopicNotifierFailed)
}
