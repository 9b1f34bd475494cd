package bridge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeGateway records outbound posts and edits and hands out sequential
// destination message IDs starting at 1000.
type fakeGateway struct {
	mu      sync.Mutex
	posts   []Post
	edits   []fakeEdit
	nextID  int
	sendErr error
	notify  chan struct{}
}

type fakeEdit struct {
	dest  Destination
	msgID int
	text  string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{nextID: 1000, notify: make(chan struct{}, 16)}
}

func (g *fakeGateway) Send(_ context.Context, post Post) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	defer func() { g.notify <- struct{}{} }()
	if g.sendErr != nil {
		return 0, g.sendErr
	}
	g.posts = append(g.posts, post)
	g.nextID++
	return g.nextID, nil
}

func (g *fakeGateway) Edit(_ context.Context, dest Destination, msgID int, text string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	defer func() { g.notify <- struct{}{} }()
	g.edits = append(g.edits, fakeEdit{dest: dest, msgID: msgID, text: text})
	return nil
}

// wait blocks until the gateway has handled n calls or the test times out.
func (g *fakeGateway) wait(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-g.notify:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for gateway call %d of %d", i+1, n)
		}
	}
}

func (g *fakeGateway) lastPost(t *testing.T) Post {
	t.Helper()
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.posts) == 0 {
		t.Fatal("no posts recorded")
	}
	return g.posts[len(g.posts)-1]
}

// fakeTranslator prefixes text with the instruction so tests can see which
// prompt was applied. The error is mutex-guarded because workers read it
// concurrently with test-side setErr calls.
type fakeTranslator struct {
	mu     sync.Mutex
	err    error
	called chan struct{}
}

func newFakeTranslator() *fakeTranslator {
	return &fakeTranslator{called: make(chan struct{}, 16)}
}

func (f *fakeTranslator) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakeTranslator) Translate(_ context.Context, text, instruction string) (string, error) {
	f.mu.Lock()
	err := f.err
	f.mu.Unlock()
	select {
	case f.called <- struct{}{}:
	default:
	}
	if err != nil {
		return "", err
	}
	return "[" + instruction + "] " + text, nil
}

// waitCall blocks until the translator has been invoked once.
func (f *fakeTranslator) waitCall(t *testing.T) {
	t.Helper()
	select {
	case <-f.called:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for translator call")
	}
}

// fakePrompts maps keys to instructions with no fallback logic; the router
// is expected to pass keys through untouched.
type fakePrompts map[string]string

func (f fakePrompts) Lookup(key string) string { return f[key] }

func testRoutes() *RouteTable {
	return NewRouteTable([]Route{
		{SourceID: 1, Dest: Destination{ChatID: -100, TopicID: 7}, PromptKey: "news"},
		{SourceID: 2, Dest: Destination{ChatID: -200}, PromptKey: "casual"},
	})
}

func startRouter(t *testing.T, gw *fakeGateway, tr Translator) *Router {
	t.Helper()
	r := NewRouter(testRoutes(), fakePrompts{"news": "formal", "casual": "chatty"}, gw, tr, 20*time.Millisecond)
	r.Start(context.Background())
	t.Cleanup(r.Stop)
	return r
}

// TestRouterForwardsTranslatedMessage verifies the happy path: translate
// with the route's prompt, post to the route's destination, record the
// mapping.
func TestRouterForwardsTranslatedMessage(t *testing.T) {
	gw := newFakeGateway()
	r := startRouter(t, gw, newFakeTranslator())

	r.Dispatch(Event{Kind: EventNewMessage, SourceID: 1, MessageID: 50, Text: "hello"})
	gw.wait(t, 1)

	post := gw.lastPost(t)
	if post.Text != "[formal] hello" {
		t.Fatalf("post text = %q; want translation with the news prompt", post.Text)
	}
	if post.Dest.ChatID != -100 || post.Dest.TopicID != 7 {
		t.Fatalf("post dest = %+v; want route destination", post.Dest)
	}
	if dest, ok := r.Correlations().Lookup(1, 50); !ok || dest != 1001 {
		t.Fatalf("correlation for 50 = %d, %v; want 1001, true", dest, ok)
	}
}

// TestRouterIgnoresUnknownSource verifies events from unconfigured chats
// never reach the gateway.
func TestRouterIgnoresUnknownSource(t *testing.T) {
	gw := newFakeGateway()
	r := startRouter(t, gw, newFakeTranslator())

	r.Dispatch(Event{Kind: EventNewMessage, SourceID: 99, MessageID: 1, Text: "stray"})
	r.Dispatch(Event{Kind: EventNewMessage, SourceID: 2, MessageID: 2, Text: "ok"})
	gw.wait(t, 1)

	gw.mu.Lock()
	defer gw.mu.Unlock()
	if len(gw.posts) != 1 || gw.posts[0].Text != "[chatty] ok" {
		t.Fatalf("posts = %+v; want only the configured source's message", gw.posts)
	}
}

// TestRouterAlbumAggregation verifies grouped members produce one post
// carrying the first non-empty text and the union of media, and that every
// member maps to the single destination message.
func TestRouterAlbumAggregation(t *testing.T) {
	gw := newFakeGateway()
	r := startRouter(t, gw, newFakeTranslator())

	r.Dispatch(Event{Kind: EventNewMessage, SourceID: 1, MessageID: 10, GroupID: "g1",
		Media: []MediaRef{{Kind: MediaPhoto, FileID: "p1"}}})
	r.Dispatch(Event{Kind: EventNewMessage, SourceID: 1, MessageID: 11, GroupID: "g1", Text: "caption",
		Media: []MediaRef{{Kind: MediaPhoto, FileID: "p2"}}})
	r.Dispatch(Event{Kind: EventNewMessage, SourceID: 1, MessageID: 12, GroupID: "g1",
		Media: []MediaRef{{Kind: MediaVideo, FileID: "v1"}}})

	gw.wait(t, 1)
	post := gw.lastPost(t)
	if post.Text != "[formal] caption" {
		t.Fatalf("album text = %q; want first non-empty caption, translated", post.Text)
	}
	if len(post.Media) != 3 || post.Media[0].FileID != "p1" || post.Media[2].FileID != "v1" {
		t.Fatalf("album media = %+v; want union in arrival order", post.Media)
	}
	for _, id := range []int{10, 11, 12} {
		if dest, ok := r.Correlations().Lookup(1, id); !ok || dest != 1001 {
			t.Fatalf("correlation for member %d = %d, %v; want 1001, true", id, dest, ok)
		}
	}
}

// TestRouterReplyResolution verifies replies to forwarded messages carry the
// destination-side reply target, and replies to unknown messages post
// without linkage.
func TestRouterReplyResolution(t *testing.T) {
	gw := newFakeGateway()
	r := startRouter(t, gw, newFakeTranslator())

	r.Dispatch(Event{Kind: EventNewMessage, SourceID: 1, MessageID: 1, Text: "first"})
	gw.wait(t, 1)

	r.Dispatch(Event{Kind: EventNewMessage, SourceID: 1, MessageID: 2, Text: "answer", ReplyToID: 1})
	gw.wait(t, 1)
	if post := gw.lastPost(t); post.ReplyToID != 1001 {
		t.Fatalf("reply post ReplyToID = %d; want mapped 1001", post.ReplyToID)
	}

	r.Dispatch(Event{Kind: EventNewMessage, SourceID: 1, MessageID: 3, Text: "orphan", ReplyToID: 777})
	gw.wait(t, 1)
	if post := gw.lastPost(t); post.ReplyToID != 0 {
		t.Fatalf("orphan reply ReplyToID = %d; want 0", post.ReplyToID)
	}
}

// TestRouterEdit verifies a mapped edit is re-translated and applied to the
// recorded destination message, and an unmapped edit is dropped.
func TestRouterEdit(t *testing.T) {
	gw := newFakeGateway()
	r := startRouter(t, gw, newFakeTranslator())

	r.Dispatch(Event{Kind: EventNewMessage, SourceID: 1, MessageID: 5, Text: "draft"})
	gw.wait(t, 1)

	r.Dispatch(Event{Kind: EventEditedMessage, SourceID: 1, MessageID: 5, Text: "final"})
	gw.wait(t, 1)

	gw.mu.Lock()
	edits := append([]fakeEdit(nil), gw.edits...)
	gw.mu.Unlock()
	if len(edits) != 1 {
		t.Fatalf("edits = %d; want 1", len(edits))
	}
	if edits[0].msgID != 1001 || edits[0].text != "[formal] final" {
		t.Fatalf("edit = %+v; want mapped message with re-translated text", edits[0])
	}

	// Edit of a never-forwarded message: dropped, no gateway call.
	r.Dispatch(Event{Kind: EventEditedMessage, SourceID: 1, MessageID: 404, Text: "ghost"})
	// Another source reusing the mapped message ID: also dropped, since
	// message IDs are scoped per chat.
	r.Dispatch(Event{Kind: EventEditedMessage, SourceID: 2, MessageID: 5, Text: "collision"})
	time.Sleep(50 * time.Millisecond)
	gw.mu.Lock()
	defer gw.mu.Unlock()
	if len(gw.edits) != 1 {
		t.Fatalf("edits after unmapped edits = %d; want still 1", len(gw.edits))
	}
}

// TestRouterFailureIsolation verifies a failing unit drops without poisoning
// later units on the same source.
func TestRouterFailureIsolation(t *testing.T) {
	gw := newFakeGateway()
	tr := newFakeTranslator()
	tr.setErr(errors.New("model unavailable"))
	r := startRouter(t, gw, tr)

	r.Dispatch(Event{Kind: EventNewMessage, SourceID: 1, MessageID: 1, Text: "doomed"})
	tr.waitCall(t)

	tr.setErr(nil)
	r.Dispatch(Event{Kind: EventNewMessage, SourceID: 1, MessageID: 2, Text: "fine"})
	gw.wait(t, 1)

	if post := gw.lastPost(t); post.Text != "[formal] fine" {
		t.Fatalf("post after failure = %q; want the later message", post.Text)
	}
	if _, ok := r.Correlations().Lookup(1, 1); ok {
		t.Fatal("failed unit must not record a correlation")
	}
}

// TestRouterMediaOnlyPostSkipsTranslation verifies a post with no text goes
// straight to the gateway without a translator call.
func TestRouterMediaOnlyPostSkipsTranslation(t *testing.T) {
	gw := newFakeGateway()
	tr := newFakeTranslator()
	r := startRouter(t, gw, tr)

	r.Dispatch(Event{Kind: EventNewMessage, SourceID: 1, MessageID: 1,
		Media: []MediaRef{{Kind: MediaDocument, FileID: "d1"}}})
	gw.wait(t, 1)

	post := gw.lastPost(t)
	if post.Text != "" || len(post.Media) != 1 {
		t.Fatalf("media-only post = %+v; want empty text, one media item", post)
	}
	select {
	case <-tr.called:
		t.Fatal("translator must not be called for media-only posts")
	default:
	}
}
