package relay

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync/atomic"

	"taigabot/pkg/logx"
)

// Deliverer hands a rendered message to the messaging platform.
type Deliverer interface {
	Deliver(ctx context.Context, address, text string) error
}

// DelivererFunc adapts a function to Deliverer.
type DelivererFunc func(ctx context.Context, address, text string) error

func (f DelivererFunc) Deliver(ctx context.Context, address, text string) error {
	return f(ctx, address, text)
}

// Instruction is one message for one recipient.
type Instruction struct {
	Category  Category
	Recipient User
	Payload   Payload
	// Text is Payload rendered with RenderHTML.
	Text string
}

func (i Instruction) Address() string { return i.Recipient.Address }

// Plan is the outcome of processing one event.
type Plan struct {
	Categories   []Category
	Instructions []Instruction
	Skipped      []*SkipError
	// Errors holds per-category failures; other categories still ran.
	Errors []error
}

// Err joins the category failures, nil when every category ran.
func (p Plan) Err() error { return errors.Join(p.Errors...) }

// Orchestrator composes classification, resolution and formatting per event.
// It is safe for concurrent use; SetLabels swaps the label table atomically.
type Orchestrator struct {
	log       logx.Logger
	ctxFields func(context.Context) []logx.Field
	labels    atomic.Pointer[Labels]
}

type OrchestratorOption func(*Orchestrator)

// WithLogFields adds per-call fields (e.g. a request id) taken from the
// Dispatch context.
func WithLogFields(fn func(context.Context) []logx.Field) OrchestratorOption {
	return func(o *Orchestrator) { o.ctxFields = fn }
}

func NewOrchestrator(labels Labels, log logx.Logger, opts ...OrchestratorOption) *Orchestrator {
	if log.IsZero() {
		log = logx.Nop()
	}
	o := &Orchestrator{log: log}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	o.SetLabels(labels)
	return o
}

func (o *Orchestrator) SetLabels(l Labels) { o.labels.Store(&l) }

func (o *Orchestrator) Labels() Labels { return *o.labels.Load() }

// Plan runs every triggered category against dir. It never panics; a panic
// inside one category is reported in Plan.Errors.
func (o *Orchestrator) Plan(ev Event, dir Directory) Plan {
	f := NewFormatter(o.Labels())
	cls := Classify(ev)

	plan := Plan{Categories: cls.Categories}
	for _, cat := range cls.Categories {
		ins, skipped, err := o.planCategory(f, cat, ev, cls, dir)
		plan.Instructions = append(plan.Instructions, ins...)
		plan.Skipped = append(plan.Skipped, skipped...)
		if err != nil {
			plan.Errors = append(plan.Errors, &CategoryError{Category: cat, Err: err})
		}
	}
	return plan
}

func (o *Orchestrator) planCategory(f Formatter, cat Category, ev Event, cls Classification, dir Directory) (ins []Instruction, skipped []*SkipError, err error) {
	defer func() {
		if r := recover(); r != nil {
			o.log.Error("category panicked",
				logx.String("category", cat.String()),
				logx.Any("panic", r),
				logx.String("stack", string(debug.Stack())))
			ins, skipped, err = nil, nil, fmt.Errorf("panic: %v", r)
		}
	}()

	if dir == nil {
		return nil, nil, errors.New("no user directory")
	}

	var users []User
	switch cat {
	case CategoryMention:
		users, skipped = resolveNames(dir, cat, cls.Mentions)
	case CategoryComment, CategoryDescriptionChange, CategoryStatusChange:
		users, skipped = resolveIDs(dir, cat, cls.Assignees)
	case CategoryAssignment:
		users, skipped = resolveIDs(dir, cat, cls.Assigned)
	default:
		return nil, nil, fmt.Errorf("unknown category %d", cat)
	}
	if len(users) == 0 {
		return nil, skipped, nil
	}

	payload := f.Format(cat, ev, cls)
	text := RenderHTML(payload)
	ins = make([]Instruction, 0, len(users))
	for _, u := range users {
		ins = append(ins, Instruction{Category: cat, Recipient: u, Payload: payload, Text: text})
	}
	return ins, skipped, nil
}

// Dispatch plans ev and hands every instruction to d. A failed delivery is
// logged and does not stop the others. The returned error joins category
// and delivery failures.
func (o *Orchestrator) Dispatch(ctx context.Context, ev Event, dir Directory, d Deliverer) (Plan, error) {
	log := o.log.With(logx.String("type", ev.Kind.String()), logx.String("action", string(ev.Action)))
	if o.ctxFields != nil {
		log = log.With(o.ctxFields(ctx)...)
	}
	plan := o.Plan(ev, dir)

	for _, s := range plan.Skipped {
		log.Info("recipient skipped",
			logx.String("category", s.Category.String()),
			logx.String("ref", s.Ref),
			logx.String("user_id", s.UserID),
			logx.String("reason", s.Kind.Error()))
	}
	errs := append([]error(nil), plan.Errors...)
	for _, err := range plan.Errors {
		log.Error("category failed", logx.Err(err))
	}

	for _, in := range plan.Instructions {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := d.Deliver(ctx, in.Address(), in.Text); err != nil {
			derr := &DeliveryError{Category: in.Category, UserID: in.Recipient.ID, Address: in.Address(), Err: err}
			errs = append(errs, derr)
			log.Warn("delivery failed",
				logx.String("category", in.Category.String()),
				logx.String("user_id", in.Recipient.ID),
				logx.Err(err))
			continue
		}
		log.Debug("notification handed off",
			logx.String("category", in.Category.String()),
			logx.String("user_id", in.Recipient.ID))
	}
	return plan, errors.Join(errs...)
}
