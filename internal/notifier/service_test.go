package notifier

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taigabot/internal/eventbus"
	"taigabot/internal/storage"
	kit "taigabot/internal/transport"
	"taigabot/pkg/logx"
)

type sent struct {
	to   kit.ChatTarget
	text string
	opt  *kit.SendOptions
}

type fakeSender struct {
	mu    sync.Mutex
	calls int
	fails int // fail the first N calls
	err   error
	got   []sent
}

func (f *fakeSender) SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.fails {
		return kit.MessageRef{}, f.err
	}
	f.got = append(f.got, sent{to: to, text: text, opt: opt})
	return kit.MessageRef{ChatID: to.ChatID, MessageID: f.calls}, nil
}

func (f *fakeSender) snapshot() (int, []sent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls, append([]sent(nil), f.got...)
}

func testConfig() Config {
	return Config{
		Enabled:       true,
		Workers:       1,
		QueueSize:     16,
		RatePerSec:    1000,
		RetryMax:      2,
		RetryBase:     time.Millisecond,
		RetryMaxDelay: 5 * time.Millisecond,
		DedupWindow:   time.Minute,
	}
}

func stopService(t *testing.T, s *Service) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s.Stop(ctx)
}

func TestDeliverQueuesAndSends(t *testing.T) {
	fs := &fakeSender{}
	s := New(testConfig(), fs, logx.Nop(), nil, nil)
	s.Start(context.Background())

	require.NoError(t, s.Deliver(context.Background(), "123456", "<b>hi</b>"))
	stopService(t, s)

	_, got := fs.snapshot()
	require.Len(t, got, 1)
	assert.Equal(t, int64(123456), got[0].to.ChatID)
	assert.Equal(t, "<b>hi</b>", got[0].text)
	require.NotNil(t, got[0].opt)
	assert.Equal(t, "HTML", got[0].opt.ParseMode)
	assert.True(t, got[0].opt.DisablePreview)
	assert.Equal(t, uint64(1), s.Stats().Sent)
}

func TestDeliverRejectsBadAddress(t *testing.T) {
	s := New(testConfig(), &fakeSender{}, logx.Nop(), nil, nil)
	for _, addr := range []string{"", "abc", "0"} {
		err := s.Deliver(context.Background(), addr, "x")
		assert.ErrorIs(t, err, ErrBadAddress, addr)
	}
}

func TestDeliverDedupsRepeatedText(t *testing.T) {
	fs := &fakeSender{}
	bus := eventbus.New()
	events, unsub := bus.Subscribe(16)
	defer unsub()

	s := New(testConfig(), fs, logx.Nop(), bus, nil)
	s.Start(context.Background())
	ctx := context.Background()
	require.NoError(t, s.Deliver(ctx, "1", "same"))
	require.NoError(t, s.Deliver(ctx, "1", "same"))
	require.NoError(t, s.Deliver(ctx, "2", "same"))
	stopService(t, s)

	_, got := fs.snapshot()
	assert.Len(t, got, 2)
	st := s.Stats()
	assert.Equal(t, uint64(1), st.Deduped)

	seen := map[string]int{}
	for len(events) > 0 {
		seen[(<-events).Type]++
	}
	assert.Equal(t, 1, seen[eventbus.TopicNotifierDeduped])
	assert.Equal(t, 2, seen[eventbus.TopicNotifierSent])
}

func TestSendRetriesTransientErrors(t *testing.T) {
	fs := &fakeSender{fails: 2, err: errors.New("timeout")}
	s := New(testConfig(), fs, logx.Nop(), nil, nil)
	s.Start(context.Background())
	require.NoError(t, s.Deliver(context.Background(), "1", "x"))
	stopService(t, s)

	calls, got := fs.snapshot()
	assert.Equal(t, 3, calls)
	assert.Len(t, got, 1)
}

func TestSendStopsOnPermanentError(t *testing.T) {
	permanent := errors.New("chat not found")
	fs := &fakeSender{fails: 10, err: permanent}
	s := New(testConfig(), fs, logx.Nop(), nil, nil,
		WithPermanentError(func(err error) bool { return errors.Is(err, permanent) }))
	s.Start(context.Background())
	require.NoError(t, s.Deliver(context.Background(), "1", "x"))
	stopService(t, s)

	calls, _ := fs.snapshot()
	assert.Equal(t, 1, calls)
	assert.Equal(t, uint64(1), s.Stats().Failed)
}

func TestFailedSendDoesNotSuppressRetryDelivery(t *testing.T) {
	fs := &fakeSender{fails: 3, err: errors.New("down")}
	cfg := testConfig()
	s := New(cfg, fs, logx.Nop(), nil, nil)
	s.Start(context.Background())
	require.NoError(t, s.Deliver(context.Background(), "1", "x"))
	stopService(t, s)

	s.Start(context.Background())
	require.NoError(t, s.Deliver(context.Background(), "1", "x"))
	stopService(t, s)

	_, got := fs.snapshot()
	assert.Len(t, got, 1)
	assert.Equal(t, uint64(0), s.Stats().Deduped)
}

func TestDeliverWhenDisabledSendsDirectly(t *testing.T) {
	fs := &fakeSender{}
	cfg := testConfig()
	cfg.Enabled = false
	s := New(cfg, fs, logx.Nop(), nil, nil)
	s.Start(context.Background())

	require.NoError(t, s.Deliver(context.Background(), "77", "direct"))
	_, got := fs.snapshot()
	require.Len(t, got, 1)
	assert.Equal(t, int64(77), got[0].to.ChatID)
}

func TestNotifyAfterStop(t *testing.T) {
	s := New(testConfig(), &fakeSender{}, logx.Nop(), nil, nil)
	s.Start(context.Background())
	stopService(t, s)
	err := s.Notify(context.Background(), kit.Notification{Channel: "c", Text: "x"})
	assert.ErrorIs(t, err, ErrStopped)
}

func TestPersistentDedupAcrossRestart(t *testing.T) {
	st, err := storage.Open(storage.Config{Driver: "file", Path: t.TempDir() + "/state"}, logx.Nop())
	require.NoError(t, err)
	defer st.Close()

	cfg := testConfig()
	cfg.PersistDedup = true

	fs := &fakeSender{}
	s1 := New(cfg, fs, logx.Nop(), nil, st)
	s1.Start(context.Background())
	require.NoError(t, s1.Deliver(context.Background(), "5", "event"))
	stopService(t, s1)

	// A fresh service has an empty memory cache; the store still remembers.
	s2 := New(cfg, fs, logx.Nop(), nil, st)
	s2.Start(context.Background())
	require.NoError(t, s2.Deliver(context.Background(), "5", "event"))
	stopService(t, s2)

	_, got := fs.snapshot()
	assert.Len(t, got, 1)
	assert.Equal(t, uint64(1), s2.Stats().Deduped)
}

func TestDedupKey(t *testing.T) {
	a := kit.Notification{Channel: "taiga", Target: kit.ChatTarget{ChatID: 1}, Text: "x"}
	b := a
	b.Target.ChatID = 2
	c := a
	c.Key = "evt-1"
	assert.NotEqual(t, dedupKey(a), dedupKey(b))
	assert.NotEqual(t, dedupKey(a), dedupKey(c))
	assert.Empty(t, dedupKey(kit.Notification{Text: "x"}))
}

func TestRetryDelayBounded(t *testing.T) {
	cfg := Config{RetryBase: 100 * time.Millisecond, RetryMaxDelay: 300 * time.Millisecond}
	for attempt := 1; attempt <= 6; attempt++ {
		d := retryDelay(cfg, attempt)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 300*time.Millisecond)
	}
}
