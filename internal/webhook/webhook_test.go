package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taigabot/internal/eventbus"
	"taigabot/internal/relay"
	"taigabot/pkg/logx"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type captured struct {
	mu     sync.Mutex
	events []relay.Event
	ids    []string
	err    error
	panic  bool
}

func (c *captured) Dispatch(ctx context.Context, ev relay.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.panic {
		panic("dispatch exploded")
	}
	c.events = append(c.events, ev)
	c.ids = append(c.ids, RequestID(ctx))
	return c.err
}

func (c *captured) Events() []relay.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]relay.Event(nil), c.events...)
}

const taskBody = `{"action":"change","type":"task","data":{"subject":"Fix bug"},"change":{"comment":"hi"}}`

func post(t *testing.T, h http.Handler, path, body string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestWebhookDispatchesEvent(t *testing.T) {
	disp := &captured{}
	s := New(Config{}, disp, logx.Nop())

	w := post(t, s.Handler(), "/webhook", taskBody, map[string]string{HeaderRequestID: "req-1"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
	assert.Equal(t, "req-1", w.Header().Get(HeaderRequestID))

	evs := disp.Events()
	require.Len(t, evs, 1)
	assert.Equal(t, relay.KindTask, evs[0].Kind)
	assert.Equal(t, "Fix bug", evs[0].Entity.Subject)
	assert.Equal(t, []string{"req-1"}, disp.ids)
}

func TestWebhookAlwaysAcknowledges(t *testing.T) {
	tests := []struct {
		name string
		body string
		disp *captured
	}{
		{name: "malformed json", body: `{"action":`, disp: &captured{}},
		{name: "not an object", body: `[1,2]`, disp: &captured{}},
		{name: "dispatch error", body: taskBody, disp: &captured{err: errors.New("telegram down")}},
		{name: "dispatch panic", body: taskBody, disp: &captured{panic: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(Config{}, tt.disp, logx.Nop())
			w := post(t, s.Handler(), "/webhook", tt.body, nil)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "OK", w.Body.String())
		})
	}
}

func TestWebhookMintsRequestID(t *testing.T) {
	s := New(Config{}, &captured{}, logx.Nop())
	w := post(t, s.Handler(), "/webhook", taskBody, nil)
	assert.Len(t, w.Header().Get(HeaderRequestID), 36)
}

func TestWebhookTestPingIsNotDispatched(t *testing.T) {
	disp := &captured{}
	bus := eventbus.New()
	ch, unsub := bus.Subscribe(4)
	defer unsub()

	s := New(Config{}, disp, logx.Nop(), WithBus(bus))
	w := post(t, s.Handler(), "/webhook", `{"action":"test","type":"test","data":{"test":"test"}}`, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, disp.Events())

	select {
	case ev := <-ch:
		require.Equal(t, eventbus.TopicWebhookReceived, ev.Type)
		rec, ok := ev.Data.(Received)
		require.True(t, ok)
		assert.True(t, rec.Test)
	case <-time.After(time.Second):
		t.Fatal("no webhook.received event")
	}
}

func TestWebhookSignature(t *testing.T) {
	disp := &captured{}
	s := New(Config{Secret: "s3cret"}, disp, logx.Nop())

	w := post(t, s.Handler(), "/webhook", taskBody, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, disp.Events())

	w = post(t, s.Handler(), "/webhook", taskBody, map[string]string{HeaderSignature: Sign("wrong", []byte(taskBody))})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, disp.Events())

	w = post(t, s.Handler(), "/webhook", taskBody, map[string]string{HeaderSignature: Sign("s3cret", []byte(taskBody))})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, disp.Events(), 1)
}

func TestSignKnownVector(t *testing.T) {
	// RFC 2202 test case 2.
	assert.Equal(t, "effcdf6ae5eb2fa2d27416d5f184df9c259a7c79", Sign("Jefe", []byte("what do ya want for nothing?")))
}

func TestWebhookBodyLimit(t *testing.T) {
	disp := &captured{}
	s := New(Config{MaxBodyBytes: 16}, disp, logx.Nop())
	w := post(t, s.Handler(), "/webhook", taskBody, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, disp.Events())
}

func TestWebhookCustomPath(t *testing.T) {
	disp := &captured{}
	s := New(Config{Path: "/taiga/hook"}, disp, logx.Nop())

	w := post(t, s.Handler(), "/webhook", taskBody, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = post(t, s.Handler(), "/taiga/hook", taskBody, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, disp.Events(), 1)
}

func TestHealth(t *testing.T) {
	s := New(Config{}, nil, logx.Nop(), WithHealth(func() map[string]any {
		return map[string]any{"users": 3, "status": "ignored"}
	}))
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 3, body["users"])
}

func TestServerStartStop(t *testing.T) {
	s := New(Config{Addr: "127.0.0.1:0"}, &captured{}, logx.Nop())
	require.NoError(t, s.Start(context.Background()))

	resp, err := http.Post("http://"+s.Addr()+"/webhook", "application/json", bytes.NewBufferString(taskBody))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}
