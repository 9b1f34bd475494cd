// Package bridge contains the message-correlation and routing engine:
// it decides whether an inbound post belongs to a multi-item album,
// aggregates album members behind a quiescence timer, resolves reply
// targets across the source/destination ID spaces, dispatches translation,
// and records the source→destination message mapping used by later edits
// and replies.
package bridge

import "context"

// EventKind distinguishes the two inbound event types the router handles.
type EventKind int

const (
	// EventNewMessage is a freshly posted source message.
	EventNewMessage EventKind = iota
	// EventEditedMessage is an edit of a previously posted source message.
	EventEditedMessage
)

// MediaKind is the pass-through media type carried by an event.
type MediaKind string

const (
	MediaPhoto     MediaKind = "photo"
	MediaVideo     MediaKind = "video"
	MediaDocument  MediaKind = "document"
	MediaAnimation MediaKind = "animation"
	MediaAudio     MediaKind = "audio"
)

// MediaRef references a media payload by the platform's own file handle.
// Media is forwarded unchanged; the bridge never downloads or transforms it.
type MediaRef struct {
	Kind   MediaKind
	FileID string
}

// Event is a normalized inbound message event from the messaging gateway.
type Event struct {
	Kind      EventKind
	SourceID  int64  // chat ID of the source channel
	MessageID int    // platform message ID within the source
	Text      string // text or caption; empty for media-only posts
	Media     []MediaRef
	GroupID   string // album/media-group token; empty for standalone posts
	ReplyToID int    // source message ID this replies to; 0 if none
}

// Destination is where a translated post lands: a flat chat, or a forum
// topic within a group when TopicID is non-zero.
type Destination struct {
	ChatID  int64
	TopicID int
}

// Route is the per-source routing policy, normalized from either
// configuration shape at load time.
type Route struct {
	SourceID  int64
	Dest      Destination
	PromptKey string
}

// RouteTable is an immutable source→route lookup built once at startup.
type RouteTable struct {
	routes map[int64]Route
}

// NewRouteTable builds a lookup table from the normalized route list.
// Later entries for the same source win, matching config precedence.
func NewRouteTable(routes []Route) *RouteTable {
	m := make(map[int64]Route, len(routes))
	for _, r := range routes {
		m[r.SourceID] = r
	}
	return &RouteTable{routes: m}
}

// Lookup returns the route for a source ID, if configured.
func (t *RouteTable) Lookup(sourceID int64) (Route, bool) {
	r, ok := t.routes[sourceID]
	return r, ok
}

// Sources returns the configured source IDs in unspecified order.
func (t *RouteTable) Sources() []int64 {
	ids := make([]int64, 0, len(t.routes))
	for id := range t.routes {
		ids = append(ids, id)
	}
	return ids
}

// Len returns the number of configured routes.
func (t *RouteTable) Len() int { return len(t.routes) }

// Post is an outbound message handed to the messaging gateway.
type Post struct {
	Dest      Destination
	Text      string
	Media     []MediaRef
	ReplyToID int // destination message ID to reply to; 0 if none
}

// MessagingGateway is the outbound side of the messaging network adapter.
type MessagingGateway interface {
	// Send posts a message (and media, if any) and returns the new
	// destination message ID.
	Send(ctx context.Context, post Post) (int, error)
	// Edit replaces the text (or caption) of a previously sent message.
	Edit(ctx context.Context, dest Destination, messageID int, text string) error
}

// LocatorResolver resolves a human-readable chat locator (e.g. "@channel")
// to its numeric identity. Needed only by legacy-mode configuration.
type LocatorResolver interface {
	ResolveLocator(ctx context.Context, locator string) (int64, error)
}

// Translator turns source text plus a style instruction into translated text.
type Translator interface {
	Translate(ctx context.Context, text, instruction string) (string, error)
}
