package bridge

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// PromptSource resolves a style key to translation-instruction text.
// Implemented by prompts.Catalog.
type PromptSource interface {
	Lookup(key string) string
}

// workerQueueSize bounds each per-source queue. A full queue drops the unit
// rather than letting one slow source stall the inbound loop.
const workerQueueSize = 64

type unitKind int

const (
	unitNew unitKind = iota
	unitGroup
	unitEdit
)

func (k unitKind) String() string {
	switch k {
	case unitGroup:
		return "group"
	case unitEdit:
		return "edit"
	default:
		return "message"
	}
}

// unit is one isolated piece of work: a standalone message, a completed
// album, or an edit. Failures inside a unit never cross into another.
type unit struct {
	kind   unitKind
	events []Event
}

// Router orchestrates translation and forwarding for single messages,
// completed albums, and edits, across both configuration modes. Events for
// different sources are processed by independent workers; events for the
// same source are serialized so an edit can never race the new-message
// handler that records its correlation entry.
type Router struct {
	routes     *RouteTable
	prompts    PromptSource
	gateway    MessagingGateway
	translator Translator
	store      *CorrelationStore
	agg        *Aggregator
	tracer     trace.Tracer

	workers map[int64]chan unit
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewRouter wires the routing engine. The album quiescence window may be
// zero to use the default.
func NewRouter(
	routes *RouteTable,
	prompts PromptSource,
	gateway MessagingGateway,
	translator Translator,
	window time.Duration,
) *Router {
	r := &Router{
		routes:     routes,
		prompts:    prompts,
		gateway:    gateway,
		translator: translator,
		store:      NewCorrelationStore(),
		tracer:     otel.Tracer("lingorelay/bridge"),
		workers:    make(map[int64]chan unit, routes.Len()),
	}
	r.agg = NewAggregator(window, r.onGroupComplete)
	return r
}

// Correlations exposes the correlation store, mainly for status reporting.
func (r *Router) Correlations() *CorrelationStore { return r.store }

// Start launches one worker goroutine per configured source. Must be called
// before Dispatch.
func (r *Router) Start(ctx context.Context) {
	r.ctx, r.cancel = context.WithCancel(ctx)
	for _, sourceID := range r.routes.Sources() {
		ch := make(chan unit, workerQueueSize)
		r.workers[sourceID] = ch
		go r.runWorker(r.ctx, sourceID, ch)
	}
	slog.Info("router started", "sources", r.routes.Len())
}

// Stop cancels workers and discards pending albums. In-flight units are
// abandoned; there is no drain guarantee.
func (r *Router) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.agg.Stop()
}

// Dispatch routes one inbound event. Events from unconfigured sources are
// ignored; grouped new messages go through the album aggregator and reach a
// worker only once their group completes.
func (r *Router) Dispatch(ev Event) {
	if _, ok := r.routes.Lookup(ev.SourceID); !ok {
		slog.Debug("event from unconfigured source ignored",
			"source_id", ev.SourceID, "message_id", ev.MessageID)
		return
	}

	if ev.Kind == EventNewMessage && ev.GroupID != "" {
		r.agg.Add(ev)
		return
	}

	kind := unitNew
	if ev.Kind == EventEditedMessage {
		kind = unitEdit
	}
	r.enqueue(ev.SourceID, unit{kind: kind, events: []Event{ev}})
}

// onGroupComplete receives a flushed album from the aggregator. All members
// share one source, so the whole group lands on that source's worker.
func (r *Router) onGroupComplete(events []Event) {
	if len(events) == 0 {
		return
	}
	r.enqueue(events[0].SourceID, unit{kind: unitGroup, events: events})
}

func (r *Router) enqueue(sourceID int64, u unit) {
	ch, ok := r.workers[sourceID]
	if !ok {
		return
	}
	select {
	case ch <- u:
	default:
		slog.Error("source queue full, unit dropped",
			"source_id", sourceID, "kind", u.kind.String(), "size", len(u.events))
	}
}

func (r *Router) runWorker(ctx context.Context, sourceID int64, ch chan unit) {
	for {
		select {
		case <-ctx.Done():
			return
		case u := <-ch:
			r.process(ctx, sourceID, u)
		}
	}
}

// process handles one unit of work end to end. Gateway failures are logged
// with enough context to diagnose and the unit is dropped; retry policy
// belongs to the gateway adapters.
func (r *Router) process(ctx context.Context, sourceID int64, u unit) {
	unitID := uuid.NewString()
	ctx, span := r.tracer.Start(ctx, "bridge.process",
		trace.WithAttributes(
			attribute.Int64("source_id", sourceID),
			attribute.String("unit_kind", u.kind.String()),
			attribute.Int("members", len(u.events)),
		))
	defer span.End()

	var err error
	switch u.kind {
	case unitEdit:
		err = r.processEdit(ctx, u.events[0])
	default:
		err = r.processPost(ctx, u.events)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.Error("unit failed",
			"unit_id", unitID,
			"source_id", sourceID,
			"kind", u.kind.String(),
			"group_id", u.events[0].GroupID,
			"error", err)
	}
}

// processPost forwards a standalone message or a completed album: the text
// of the first member carrying any, the union of all members' media, and an
// optional reply linkage resolved through the correlation store.
func (r *Router) processPost(ctx context.Context, events []Event) error {
	first := events[0]
	route, _ := r.routes.Lookup(first.SourceID)

	var text string
	var media []MediaRef
	var replyTo int
	for _, ev := range events {
		if text == "" && ev.Text != "" {
			text = ev.Text
		}
		if replyTo == 0 && ev.ReplyToID != 0 {
			replyTo = ev.ReplyToID
		}
		media = append(media, ev.Media...)
	}

	// Reply resolution is best-effort: an unknown source message means its
	// counterpart was never forwarded, so the post goes out without linkage.
	// Replies always target a message in the same chat.
	var destReply int
	if replyTo != 0 {
		if dest, ok := r.store.Lookup(first.SourceID, replyTo); ok {
			destReply = dest
		} else {
			slog.Warn("reply target has no forwarded counterpart, posting without reply",
				"source_id", first.SourceID, "reply_to", replyTo)
		}
	}

	if text != "" {
		translated, err := r.translator.Translate(ctx, text, r.prompts.Lookup(route.PromptKey))
		if err != nil {
			return err
		}
		text = translated
	}

	destMsgID, err := r.gateway.Send(ctx, Post{
		Dest:      route.Dest,
		Text:      text,
		Media:     media,
		ReplyToID: destReply,
	})
	if err != nil {
		return err
	}

	// Record every originating message ID against the first destination
	// message, so a later reply to any album member still resolves.
	for _, ev := range events {
		r.store.Record(ev.SourceID, ev.MessageID, destMsgID)
	}

	slog.Info("message forwarded",
		"source_id", first.SourceID,
		"source_msg_id", first.MessageID,
		"dest_msg_id", destMsgID,
		"members", len(events),
		"media", len(media))
	return nil
}

// processEdit re-translates the updated text and applies it to the recorded
// destination message. Edits of messages that were never forwarded (they
// predate the service, or the original post failed) are dropped.
func (r *Router) processEdit(ctx context.Context, ev Event) error {
	destMsgID, ok := r.store.Lookup(ev.SourceID, ev.MessageID)
	if !ok {
		slog.Warn("edit for unmapped message dropped",
			"source_id", ev.SourceID, "message_id", ev.MessageID)
		return nil
	}
	if ev.Text == "" {
		slog.Warn("edit without text dropped",
			"source_id", ev.SourceID, "message_id", ev.MessageID)
		return nil
	}

	route, _ := r.routes.Lookup(ev.SourceID)
	translated, err := r.translator.Translate(ctx, ev.Text, r.prompts.Lookup(route.PromptKey))
	if err != nil {
		return err
	}

	if err := r.gateway.Edit(ctx, route.Dest, destMsgID, translated); err != nil {
		return err
	}

	slog.Info("edit forwarded",
		"source_id", ev.SourceID,
		"source_msg_id", ev.MessageID,
		"dest_msg_id", destMsgID)
	return nil
}
