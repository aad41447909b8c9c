package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kk-code-lab/rbrowse/internal/protocol"
)

type fakeConn struct {
	inbound chan string
	closeCh chan struct{}

	// gate, when set, holds every write until it is closed.
	gate chan struct{}

	mu       sync.Mutex
	writes   []string
	writeErr error
	closed   int
	once     sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{inbound: make(chan string, 16), closeCh: make(chan struct{})}
}

func (c *fakeConn) ReadMessage() (string, error) {
	select {
	case msg, ok := <-c.inbound:
		if !ok {
			return "", ErrConnClosed
		}
		return msg, nil
	case <-c.closeCh:
		return "", errors.New("use of closed connection")
	}
}

func (c *fakeConn) WriteMessage(msg string) error {
	if c.gate != nil {
		<-c.gate
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	c.writes = append(c.writes, msg)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	c.closed++
	c.mu.Unlock()
	c.once.Do(func() { close(c.closeCh) })
	return nil
}

func (c *fakeConn) Writes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.writes))
	copy(out, c.writes)
	return out
}

func (c *fakeConn) Closed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type dialResult struct {
	conn *fakeConn
	err  error
}

type fakeDialer struct {
	results chan dialResult
	dials   chan string
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{results: make(chan dialResult, 8), dials: make(chan string, 8)}
}

func (d *fakeDialer) Dial(ctx context.Context, url string) (Conn, error) {
	d.dials <- url
	select {
	case r := <-d.results:
		if r.err != nil {
			return nil, r.err
		}
		return r.conn, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type staticIdentity struct {
	id  string
	err error
}

func (s staticIdentity) VisitorID(context.Context) (string, error) {
	return s.id, s.err
}

type fakeTimer struct {
	delay   time.Duration
	fire    func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.stopped = true
	return true
}

type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
	armed  chan *fakeTimer
}

func newFakeClock() *fakeClock {
	return &fakeClock{armed: make(chan *fakeTimer, 8)}
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) stopper {
	t := &fakeTimer{delay: d, fire: f}
	c.mu.Lock()
	c.timers = append(c.timers, t)
	c.mu.Unlock()
	c.armed <- t
	return t
}

type harness struct {
	t      *testing.T
	m      *Manager
	dialer *fakeDialer
	clock  *fakeClock
	events chan Event
}

func newHarness(t *testing.T, identity Identity) *harness {
	t.Helper()
	h := &harness{
		t:      t,
		dialer: newFakeDialer(),
		clock:  newFakeClock(),
		events: make(chan Event, 64),
	}
	h.m = New(Options{
		URL:       "ws://files.local/connect",
		Dialer:    h.dialer,
		Identity:  identity,
		OnEvent:   func(ev Event) { h.events <- ev },
		afterFunc: h.clock.AfterFunc,
	})
	t.Cleanup(func() { _ = h.m.Close() })
	return h
}

func (h *harness) nextEvent() Event {
	h.t.Helper()
	select {
	case ev := <-h.events:
		return ev
	case <-time.After(2 * time.Second):
		h.t.Fatal("timed out waiting for event")
		return nil
	}
}

func (h *harness) expectState(want State) StateChanged {
	h.t.Helper()
	for {
		ev := h.nextEvent()
		if sc, ok := ev.(StateChanged); ok {
			if sc.State != want {
				h.t.Fatalf("state = %s, want %s", sc.State, want)
			}
			return sc
		}
	}
}

func (h *harness) expectFrame() FrameReceived {
	h.t.Helper()
	for {
		ev := h.nextEvent()
		switch e := ev.(type) {
		case FrameReceived:
			return e
		case StateChanged:
			h.t.Fatalf("unexpected state change %s while waiting for frame", e.State)
		}
	}
}

func (h *harness) waitDial() {
	h.t.Helper()
	select {
	case <-h.dialer.dials:
	case <-time.After(2 * time.Second):
		h.t.Fatal("timed out waiting for dial")
	}
}

func (h *harness) waitTimer() *fakeTimer {
	h.t.Helper()
	select {
	case tm := <-h.clock.armed:
		return tm
	case <-time.After(2 * time.Second):
		h.t.Fatal("timed out waiting for reconnect timer")
		return nil
	}
}

func waitWrites(t *testing.T, c *fakeConn, n int) []string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if w := c.Writes(); len(w) >= n {
			return w
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d writes, got %q", n, c.Writes())
	return nil
}

func waitClosed(t *testing.T, c *fakeConn) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.Closed() > 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("connection was not closed")
}

// connect drives a fresh harness through a successful handshake.
func (h *harness) connect(conn *fakeConn) {
	h.t.Helper()
	h.dialer.results <- dialResult{conn: conn}
	h.expectState(Connecting)
	h.expectState(Connected)
	if ev, ok := h.nextEvent().(VisitorResolved); !ok || ev.ID == "" {
		h.t.Fatalf("expected VisitorResolved, got %#v", ev)
	}
	waitWrites(h.t, conn, 2)
}

func TestHandshakeOrder(t *testing.T) {
	h := newHarness(t, staticIdentity{id: "visitor-1"})
	if err := h.m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	conn := newFakeConn()
	h.connect(conn)

	writes := conn.Writes()
	if writes[0] != "CONNECT: visitor-1" || writes[1] != "FILES: /" {
		t.Fatalf("writes = %q", writes)
	}
	if h.m.State() != Connected {
		t.Fatalf("State = %s", h.m.State())
	}
}

func TestRequestListingBeforeHandshakeIsDeferred(t *testing.T) {
	h := newHarness(t, staticIdentity{id: "v"})
	if err := h.m.RequestListing("/music/"); err != nil {
		t.Fatalf("RequestListing: %v", err)
	}
	if h.m.Path() != "/music" {
		t.Fatalf("Path = %q", h.m.Path())
	}
	if err := h.m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	conn := newFakeConn()
	h.connect(conn)

	writes := conn.Writes()
	if len(writes) != 2 || writes[1] != "FILES: /music" {
		t.Fatalf("writes = %q", writes)
	}
}

func TestResponsesCarryRequestedPath(t *testing.T) {
	h := newHarness(t, staticIdentity{id: "v"})
	_ = h.m.Start(context.Background())
	conn := newFakeConn()
	h.connect(conn)

	conn.inbound <- `FILES: [{"name":"root.txt"}]`
	if fr := h.expectFrame(); fr.Unmatched || fr.RequestedPath != "/" {
		t.Fatalf("root reply = %+v", fr)
	}

	_ = h.m.RequestListing("/a")
	waitWrites(t, conn, 3)
	conn.inbound <- `FILES: [{"name":"a.txt"}]`
	fr := h.expectFrame()
	if fr.Unmatched || fr.RequestedPath != "/a" {
		t.Fatalf("reply = %+v", fr)
	}
	if _, ok := fr.Frame.(protocol.Files); !ok {
		t.Fatalf("expected Files frame, got %T", fr.Frame)
	}
}

func TestRepliesWithSeveralOutstandingAreUnmatched(t *testing.T) {
	h := newHarness(t, staticIdentity{id: "v"})
	_ = h.m.Start(context.Background())
	conn := newFakeConn()
	h.connect(conn)

	_ = h.m.RequestListing("/a")
	_ = h.m.RequestListing("/b")
	waitWrites(t, conn, 4)

	conn.inbound <- `FILES: [{"name":"root.txt"}]`
	conn.inbound <- `FILES: [{"name":"a.txt"}]`
	conn.inbound <- `FILES: [{"name":"b.txt"}]`

	for i, want := range []struct {
		path      string
		unmatched bool
	}{{"", true}, {"", true}, {"/b", false}} {
		fr := h.expectFrame()
		if fr.RequestedPath != want.path || fr.Unmatched != want.unmatched {
			t.Fatalf("reply %d = %+v, want path %q unmatched %v", i, fr, want.path, want.unmatched)
		}
	}
}

func TestErrorReplyAnswersRequest(t *testing.T) {
	h := newHarness(t, staticIdentity{id: "v"})
	_ = h.m.Start(context.Background())
	conn := newFakeConn()
	h.connect(conn)

	conn.inbound <- `FILES: [{"name":"root.txt"}]`
	h.expectFrame()

	_ = h.m.RequestListing("/bad")
	waitWrites(t, conn, 3)
	conn.inbound <- `ERROR: no such directory`
	fr := h.expectFrame()
	if info, ok := fr.Frame.(protocol.Info); !ok || !info.IsError() || fr.RequestedPath != "/bad" || fr.Unmatched {
		t.Fatalf("error reply = %+v", fr)
	}

	// Back and forth while /c is still outstanding: its reply must not be
	// attributed to /bad.
	_ = h.m.RequestListing("/c")
	_ = h.m.RequestListing("/bad")
	waitWrites(t, conn, 5)
	conn.inbound <- `FILES: [{"name":"c-only.txt"}]`
	if fr := h.expectFrame(); !fr.Unmatched || fr.RequestedPath != "" {
		t.Fatalf("/c reply = %+v", fr)
	}
	conn.inbound <- `ERROR: no such directory`
	if fr := h.expectFrame(); fr.Unmatched || fr.RequestedPath != "/bad" {
		t.Fatalf("/bad reply = %+v", fr)
	}

	conn.inbound <- `FILES: [{"name":"late.txt"}]`
	if fr := h.expectFrame(); !fr.Unmatched {
		t.Fatalf("unsolicited listing should be unmatched, got %+v", fr)
	}
}

func TestUnansweredRequestDropsConnection(t *testing.T) {
	h := newHarness(t, staticIdentity{id: "v"})
	h.m.timeout = 10 * time.Millisecond
	_ = h.m.Start(context.Background())
	conn := newFakeConn()
	h.connect(conn)

	time.Sleep(30 * time.Millisecond)
	_ = h.m.RequestListing("/next")

	sc := h.expectState(Errored)
	if !errors.Is(sc.Err, ErrListingTimeout) {
		t.Fatalf("Err = %v", sc.Err)
	}
	h.waitTimer()
	waitClosed(t, conn)
	if h.m.Path() != "/next" {
		t.Fatalf("Path = %q", h.m.Path())
	}
}

func TestRequestListingDoesNotWaitForTheSocket(t *testing.T) {
	h := newHarness(t, staticIdentity{id: "v"})
	_ = h.m.Start(context.Background())
	conn := newFakeConn()
	h.connect(conn)

	conn.gate = make(chan struct{})
	done := make(chan struct{})
	go func() {
		_ = h.m.RequestListing("/slow")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RequestListing blocked on a stalled write")
	}

	close(conn.gate)
	if w := waitWrites(t, conn, 3); w[2] != "FILES: /slow" {
		t.Fatalf("writes = %q", w)
	}
}

func TestDecodeFailureConsumesRequest(t *testing.T) {
	h := newHarness(t, staticIdentity{id: "v"})
	_ = h.m.Start(context.Background())
	conn := newFakeConn()
	h.connect(conn)
	_ = h.m.RequestListing("/next")

	waitWrites(t, conn, 3)

	conn.inbound <- `FILES: {broken`
	conn.inbound <- `FILES: []`

	ev := h.nextEvent()
	failed, ok := ev.(DecodeFailed)
	if !ok {
		t.Fatalf("expected DecodeFailed, got %#v", ev)
	}
	if !errors.Is(failed.Err, protocol.ErrListingParse) || !failed.Unmatched {
		t.Fatalf("unexpected failure %+v", failed)
	}
	if fr := h.expectFrame(); fr.RequestedPath != "/next" {
		t.Fatalf("RequestedPath = %q", fr.RequestedPath)
	}
	if h.m.State() != Connected {
		t.Fatal("decode faults must not drop the connection")
	}
}

func TestConfigAndInfoFrames(t *testing.T) {
	h := newHarness(t, staticIdentity{id: "v"})
	_ = h.m.Start(context.Background())
	conn := newFakeConn()
	h.connect(conn)

	conn.inbound <- `CONFIG: {"Name":"share"}`
	conn.inbound <- `CONFIG: {"Name":"other"}`
	conn.inbound <- `CONNECTION SUCCESFUL`

	fr := h.expectFrame()
	cfg, ok := fr.Frame.(protocol.Config)
	if !ok || cfg.Config.Name != "share" || fr.RequestedPath != "" {
		t.Fatalf("unexpected frame %#v", fr)
	}
	fr = h.expectFrame()
	if info, ok := fr.Frame.(protocol.Info); !ok || info.Text != "CONNECTION SUCCESFUL" {
		t.Fatalf("expected info frame after the repeated config was ignored, got %#v", fr.Frame)
	}
}

func TestReconnectAfterCloseUsesFixedDelay(t *testing.T) {
	h := newHarness(t, staticIdentity{id: "v"})
	_ = h.m.Start(context.Background())
	h.waitDial()
	first := newFakeConn()
	h.connect(first)
	_ = h.m.RequestListing("/docs")
	waitWrites(t, first, 3)

	close(first.inbound)
	sc := h.expectState(Disconnected)
	if !errors.Is(sc.Err, ErrConnClosed) {
		t.Fatalf("Err = %v", sc.Err)
	}

	tm := h.waitTimer()
	if tm.delay != 3000*time.Millisecond {
		t.Fatalf("reconnect delay = %v", tm.delay)
	}
	select {
	case <-h.dialer.dials:
		t.Fatal("dialed before the reconnect timer fired")
	case <-time.After(50 * time.Millisecond):
	}

	second := newFakeConn()
	tm.fire()
	h.waitDial()
	h.connect(second)

	writes := second.Writes()
	if writes[0] != "CONNECT: v" || writes[1] != "FILES: /docs" {
		t.Fatalf("reconnect should re-request the last path, got %q", writes)
	}
	waitClosed(t, first)
}

func TestTransportErrorIsErrored(t *testing.T) {
	h := newHarness(t, staticIdentity{id: "v"})
	_ = h.m.Start(context.Background())
	h.dialer.results <- dialResult{err: errors.New("connection refused")}

	h.expectState(Connecting)
	sc := h.expectState(Errored)
	if sc.Err == nil {
		t.Fatal("expected error on Errored state")
	}
	if tm := h.waitTimer(); tm.delay != DefaultReconnectDelay {
		t.Fatalf("delay = %v", tm.delay)
	}

	select {
	case tm := <-h.clock.armed:
		t.Fatalf("a second timer was armed: %+v", tm)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestVisitorIDFailureRetries(t *testing.T) {
	h := newHarness(t, staticIdentity{err: errors.New("keyring locked")})
	_ = h.m.Start(context.Background())
	conn := newFakeConn()
	h.dialer.results <- dialResult{conn: conn}

	h.expectState(Connecting)
	h.expectState(Connected)
	h.expectState(Errored)
	h.waitTimer()

	if len(conn.Writes()) != 0 {
		t.Fatalf("nothing should be sent without an id, got %q", conn.Writes())
	}
	waitClosed(t, conn)
}

func TestWriteFailureDropsConnection(t *testing.T) {
	h := newHarness(t, staticIdentity{id: "v"})
	_ = h.m.Start(context.Background())
	conn := newFakeConn()
	h.connect(conn)

	conn.mu.Lock()
	conn.writeErr = errors.New("broken pipe")
	conn.mu.Unlock()

	if err := h.m.RequestListing("/x"); err != nil {
		t.Fatalf("RequestListing: %v", err)
	}
	h.expectState(Errored)
	h.waitTimer()
	if h.m.Path() != "/x" {
		t.Fatalf("desired path should survive the drop, got %q", h.m.Path())
	}
}

func TestCloseIsIdempotentAndCancelsTimer(t *testing.T) {
	h := newHarness(t, staticIdentity{id: "v"})
	_ = h.m.Start(context.Background())
	h.dialer.results <- dialResult{err: errors.New("refused")}
	h.expectState(Connecting)
	h.expectState(Errored)
	tm := h.waitTimer()

	if err := h.m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := h.m.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if !tm.stopped {
		t.Fatal("pending reconnect timer was not stopped")
	}
	h.expectState(Disconnected)

	tm.fire()
	select {
	case <-h.dialer.dials:
		t.Fatal("closed session dialed again")
	case <-time.After(50 * time.Millisecond):
	}

	if err := h.m.Start(context.Background()); err == nil {
		t.Fatal("Start after Close should fail")
	}
}

func TestCloseClosesLiveConnection(t *testing.T) {
	h := newHarness(t, staticIdentity{id: "v"})
	_ = h.m.Start(context.Background())
	conn := newFakeConn()
	h.connect(conn)

	_ = h.m.Close()
	if conn.Closed() == 0 {
		t.Fatal("live connection not closed")
	}
	h.expectState(Disconnected)
	if h.m.State() != Disconnected {
		t.Fatalf("State = %s", h.m.State())
	}

	select {
	case tm := <-h.clock.armed:
		t.Fatalf("teardown must not arm a reconnect, got %+v", tm)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestContextCancelTearsDown(t *testing.T) {
	h := newHarness(t, staticIdentity{id: "v"})
	ctx, cancel := context.WithCancel(context.Background())
	_ = h.m.Start(ctx)
	conn := newFakeConn()
	h.connect(conn)

	cancel()
	h.expectState(Disconnected)
	waitClosed(t, conn)
}

func TestReconnectTimingWithRealTimer(t *testing.T) {
	var (
		mu      sync.Mutex
		armedAt time.Time
		firedAt = make(chan time.Time, 1)
	)
	dialer := newFakeDialer()
	m := New(Options{
		URL:      "ws://files.local/connect",
		Dialer:   dialer,
		Identity: staticIdentity{id: "v"},
		afterFunc: func(d time.Duration, f func()) stopper {
			mu.Lock()
			armedAt = time.Now()
			mu.Unlock()
			return time.AfterFunc(d, func() {
				firedAt <- time.Now()
				f()
			})
		},
	})
	defer func() { _ = m.Close() }()

	dialer.results <- dialResult{err: errors.New("refused")}
	_ = m.Start(context.Background())

	select {
	case fired := <-firedAt:
		mu.Lock()
		elapsed := fired.Sub(armedAt)
		mu.Unlock()
		if elapsed < 3000*time.Millisecond || elapsed > 3100*time.Millisecond {
			t.Fatalf("reconnect fired after %v", elapsed)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("reconnect never fired")
	}
}
