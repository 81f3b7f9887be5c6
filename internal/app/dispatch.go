package app

import (
	"context"

	"taigabot/internal/directory"
	"taigabot/internal/eventbus"
	"taigabot/internal/relay"
	"taigabot/internal/webhook"
	"taigabot/pkg/logx"
)

// Planned is published on eventbus.TopicDispatchPlanned.
type Planned struct {
	RequestID    string   `json:"request_id,omitempty"`
	Type         string   `json:"type"`
	Action       string   `json:"action"`
	Categories   []string `json:"categories"`
	Instructions int      `json:"instructions"`
	Skipped      int      `json:"skipped"`
	Failed       bool     `json:"failed"`
}

// relayDispatcher feeds webhook events through the orchestrator. Each event
// sees a single directory snapshot.
type relayDispatcher struct {
	orch    *relay.Orchestrator
	users   *directory.Store
	deliver relay.Deliverer
	bus     eventbus.Bus
}

var _ webhook.Dispatcher = (*relayDispatcher)(nil)

func (d *relayDispatcher) Dispatch(ctx context.Context, ev relay.Event) error {
	plan, err := d.orch.Dispatch(ctx, ev, d.users.Current(), d.deliver)

	cats := make([]string, 0, len(plan.Categories))
	for _, c := range plan.Categories {
		cats = append(cats, c.String())
	}
	eventbus.Publish(d.bus, eventbus.TopicDispatchPlanned, Planned{
		RequestID:    webhook.RequestID(ctx),
		Type:         ev.Kind.String(),
		Action:       string(ev.Action),
		Categories:   cats,
		Instructions: len(plan.Instructions),
		Skipped:      len(plan.Skipped),
		Failed:       err != nil,
	})
	return err
}

func requestFields(ctx context.Context) []logx.Field {
	if id := webhook.RequestID(ctx); id != "" {
		return []logx.Field{logx.String("request_id", id)}
	}
	return nil
}

// logBusEvents mirrors bus traffic into the log: failures loudly, the rest
// at debug.
func logBusEvents(log logx.Logger, e eventbus.Event) {
	switch e.Type {
	case eventbus.TopicNotifierFailed, eventbus.TopicNotifierDropped:
		log.Warn("notification not delivered", logx.String("topic", e.Type), logx.Any("data", e.Data))
	default:
		if log.Enabled(logx.LevelDebug) {
			log.Debug("event", logx.String("topic", e.Type), logx.Time("time", e.Time), logx.Any("data", e.Data))
		}
	}
}
