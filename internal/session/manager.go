package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kk-code-lab/rbrowse/internal/listing"
	"github.com/kk-code-lab/rbrowse/internal/metrics"
	"github.com/kk-code-lab/rbrowse/internal/protocol"
)

// DefaultReconnectDelay is the fixed wait between a drop and the next attempt.
const DefaultReconnectDelay = 3000 * time.Millisecond

// DefaultListingTimeout is how long a listing request may stay unanswered
// before the connection is considered out of step and replaced.
const DefaultListingTimeout = 30 * time.Second

// ErrListingTimeout marks a connection dropped because a listing request was
// never answered.
var ErrListingTimeout = errors.New("listing request unanswered")

// Options configures a Manager.
type Options struct {
	URL            string
	Dialer         Dialer
	Identity       Identity
	ReconnectDelay time.Duration
	ListingTimeout time.Duration
	// StartPath is the first path requested after the handshake.
	StartPath string
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	// OnEvent receives every event in order. It may block; the manager
	// never calls it while holding internal locks.
	OnEvent func(Event)

	afterFunc func(time.Duration, func()) stopper
}

// request is a FILES request written on the live connection.
type request struct {
	path string
	sent time.Time
}

// outbound is a FILES request waiting for the sender goroutine.
type outbound struct {
	path string
	gen  uint64
}

type stopper interface {
	Stop() bool
}

func realAfterFunc(d time.Duration, f func()) stopper {
	return time.AfterFunc(d, f)
}

// Manager owns the single connection and the single reconnect timer of a
// session. Retries are unbounded at a fixed delay.
type Manager struct {
	url       string
	dialer    Dialer
	identity  Identity
	delay     time.Duration
	timeout   time.Duration
	logger    *slog.Logger
	metrics   *metrics.Metrics
	onEvent   func(Event)
	afterFunc func(time.Duration, func()) stopper

	// writeMu serializes writes and is always taken before mu.
	writeMu sync.Mutex

	mu         sync.Mutex
	ctx        context.Context
	cancel     context.CancelFunc
	started    bool
	closed     bool
	attempts   int
	gen        uint64
	state      State
	conn       Conn
	timer      stopper
	desired    string
	handshaken bool
	configSeen bool
	pending    []request
	outbox     []outbound
	queue      []Event

	wake     chan struct{}
	sendWake chan struct{}
	done     chan struct{}
}

// New builds a manager. Call Start to begin connecting.
func New(opts Options) *Manager {
	delay := opts.ReconnectDelay
	if delay <= 0 {
		delay = DefaultReconnectDelay
	}
	timeout := opts.ListingTimeout
	if timeout <= 0 {
		timeout = DefaultListingTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	dialer := opts.Dialer
	if dialer == nil {
		dialer = WebSocketDialer{}
	}
	after := opts.afterFunc
	if after == nil {
		after = realAfterFunc
	}
	onEvent := opts.OnEvent
	if onEvent == nil {
		onEvent = func(Event) {}
	}

	return &Manager{
		url:       opts.URL,
		dialer:    dialer,
		identity:  opts.Identity,
		delay:     delay,
		timeout:   timeout,
		logger:    logger.With("component", "session"),
		metrics:   opts.Metrics,
		onEvent:   onEvent,
		afterFunc: after,
		state:     Disconnected,
		desired:   listing.NormalizePath(opts.StartPath),
		wake:      make(chan struct{}, 1),
		sendWake:  make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
}

// Start begins the first connection attempt. Cancelling ctx tears the
// session down like Close.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return errors.New("session closed")
	}
	if m.started {
		m.mu.Unlock()
		return errors.New("session already started")
	}
	if m.identity == nil {
		m.mu.Unlock()
		return errors.New("session: no identity provider")
	}
	m.started = true
	m.ctx, m.cancel = context.WithCancel(ctx)
	runCtx := m.ctx
	m.mu.Unlock()

	go m.deliver()
	go m.send()
	go func() {
		<-runCtx.Done()
		_ = m.Close()
	}()

	m.attempt()
	return nil
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Path returns the most recently requested path.
func (m *Manager) Path() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.desired
}

// RequestListing records path as desired and, when the handshake has gone
// out on the live connection, queues a FILES request for it. Before that the
// path is sent as part of the next handshake. It never waits on the socket;
// write failures surface as a state change.
func (m *Manager) RequestListing(path string) error {
	path = listing.NormalizePath(path)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.desired = path
	if m.closed || !m.handshaken || m.conn == nil {
		return nil
	}
	m.queueLocked(path)
	return nil
}

func (m *Manager) queueLocked(path string) {
	m.outbox = append(m.outbox, outbound{path: path, gen: m.gen})
	select {
	case m.sendWake <- struct{}{}:
	default:
	}
}

// send writes queued listing requests in order.
func (m *Manager) send() {
	for {
		select {
		case <-m.sendWake:
		case <-m.done:
			return
		}
		for m.sendNext() {
		}
	}
}

// sendNext writes one queued request. It reports whether the outbox may
// hold more.
func (m *Manager) sendNext() bool {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	m.mu.Lock()
	if m.closed || len(m.outbox) == 0 {
		m.mu.Unlock()
		return false
	}
	out := m.outbox[0]
	m.outbox = m.outbox[1:]
	if out.gen != m.gen || !m.handshaken || m.conn == nil {
		m.mu.Unlock()
		return true
	}
	conn, gen := m.conn, m.gen
	if len(m.pending) > 0 && time.Since(m.pending[0].sent) > m.timeout {
		head := m.pending[0].path
		m.mu.Unlock()
		m.fail(gen, conn, fmt.Errorf("%w: %s", ErrListingTimeout, head))
		return true
	}
	m.pending = append(m.pending, request{path: out.path, sent: time.Now()})
	m.mu.Unlock()

	if err := conn.WriteMessage(protocol.EncodeFiles(out.path)); err != nil {
		m.fail(gen, conn, fmt.Errorf("send listing request: %w", err))
		return true
	}
	m.logger.Debug("listing requested", "path", out.path)
	return true
}

// Close tears the session down. It cancels the reconnect timer, closes the
// live connection and is safe to call more than once.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.gen++
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	conn := m.conn
	m.conn = nil
	m.resetRequestsLocked()
	m.handshaken = false
	prev := m.state
	m.state = Disconnected
	if prev != Disconnected {
		m.enqueueLocked(StateChanged{State: Disconnected})
	}
	cancel := m.cancel
	m.mu.Unlock()

	m.metrics.SetConnectionState(Disconnected.String())
	if cancel != nil {
		cancel()
	}
	close(m.done)

	if conn != nil {
		return conn.Close()
	}
	return nil
}

func (m *Manager) attempt() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.gen++
	gen := m.gen
	m.attempts++
	attempt := m.attempts
	m.handshaken = false
	m.configSeen = false
	m.resetRequestsLocked()
	m.setStateLocked(Connecting, nil)
	ctx := m.ctx
	m.mu.Unlock()

	if attempt > 1 {
		m.metrics.RecordReconnect()
	}
	m.logger.Debug("connecting", "url", m.url, "attempt", attempt)
	go m.run(ctx, gen)
}

func (m *Manager) run(ctx context.Context, gen uint64) {
	conn, err := m.dialer.Dial(ctx, m.url)
	if err != nil {
		m.fail(gen, nil, err)
		return
	}

	m.mu.Lock()
	if m.closed || gen != m.gen {
		m.mu.Unlock()
		_ = conn.Close()
		return
	}
	m.conn = conn
	m.setStateLocked(Connected, nil)
	m.mu.Unlock()
	m.logger.Info("connected", "url", m.url)

	id, err := m.identity.VisitorID(ctx)
	if err != nil {
		m.fail(gen, conn, fmt.Errorf("resolve visitor id: %w", err))
		return
	}
	if !m.emitIfCurrent(gen, VisitorResolved{ID: id}) {
		return
	}

	if err := m.handshake(gen, conn, id); err != nil {
		m.fail(gen, conn, err)
		return
	}

	for {
		raw, err := conn.ReadMessage()
		if err != nil {
			m.fail(gen, conn, err)
			return
		}
		m.handleMessage(gen, raw)
	}
}

func (m *Manager) handshake(gen uint64, conn Conn, id string) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	if err := conn.WriteMessage(protocol.EncodeConnect(id)); err != nil {
		return fmt.Errorf("send handshake: %w", err)
	}

	m.mu.Lock()
	if m.closed || gen != m.gen {
		m.mu.Unlock()
		return nil
	}
	path := m.desired
	m.pending = append(m.pending, request{path: path, sent: time.Now()})
	m.handshaken = true
	m.mu.Unlock()

	if err := conn.WriteMessage(protocol.EncodeFiles(path)); err != nil {
		return fmt.Errorf("send listing request: %w", err)
	}
	m.logger.Debug("handshake sent", "path", path)
	return nil
}

func (m *Manager) handleMessage(gen uint64, raw string) {
	frame, err := protocol.Decode(raw)

	var decodeErr *protocol.DecodeError
	isReply := false
	switch {
	case err == nil:
		switch f := frame.(type) {
		case protocol.Files:
			isReply = true
		case protocol.Info:
			isReply = f.IsError()
		}
	case errors.As(err, &decodeErr):
		isReply = decodeErr.Prefix == protocol.PrefixFiles
	}

	m.mu.Lock()
	if m.closed || gen != m.gen {
		m.mu.Unlock()
		return
	}

	requested, unmatched := "", false
	if isReply {
		requested, unmatched = m.answerLocked()
	}

	if err != nil {
		m.enqueueLocked(DecodeFailed{Err: err, RequestedPath: requested, Unmatched: unmatched})
		m.mu.Unlock()

		prefix := ""
		if decodeErr != nil {
			prefix = decodeErr.Prefix
		}
		m.metrics.RecordDecodeFailure(prefix)
		m.logger.Warn("dropping undecodable frame", "prefix", prefix, "error", err)
		return
	}

	kind := frameKind(frame)
	if _, ok := frame.(protocol.Config); ok {
		if m.configSeen {
			m.mu.Unlock()
			m.logger.Debug("ignoring repeated config frame")
			return
		}
		m.configSeen = true
	}
	m.enqueueLocked(FrameReceived{Frame: frame, RequestedPath: requested, Unmatched: unmatched})
	m.mu.Unlock()

	m.metrics.RecordFrame(kind)
	if unmatched {
		m.logger.Debug("reply not matched to a single request", "kind", kind)
	}
	if info, ok := frame.(protocol.Info); ok {
		m.logger.Debug("server message", "text", info.Text)
	}
}

// answerLocked consumes the oldest outstanding request for a reply. A reply
// is matched only when exactly one request was outstanding; with several in
// flight it is reported unmatched. A request left unanswered past the
// listing timeout drops the connection when the next one is sent.
func (m *Manager) answerLocked() (string, bool) {
	if len(m.pending) == 0 {
		return "", true
	}
	head := m.pending[0].path
	alone := len(m.pending) == 1
	m.pending = m.pending[1:]
	if !alone {
		return "", true
	}
	return head, false
}

func (m *Manager) resetRequestsLocked() {
	m.pending = nil
	m.outbox = nil
}

func frameKind(f protocol.Frame) string {
	switch f.(type) {
	case protocol.Files:
		return "files"
	case protocol.Config:
		return "config"
	default:
		return "info"
	}
}

// fail routes any transport fault of attempt gen to the reconnect path.
// Only the first failure of an attempt counts.
func (m *Manager) fail(gen uint64, conn Conn, err error) {
	m.mu.Lock()
	if m.closed || gen != m.gen {
		m.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	m.gen++
	m.conn = nil
	m.resetRequestsLocked()
	m.handshaken = false

	next := Errored
	if errors.Is(err, ErrConnClosed) {
		next = Disconnected
	}
	m.setStateLocked(next, err)
	m.timer = m.afterFunc(m.delay, m.attempt)
	m.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	if next == Disconnected {
		m.logger.Info("connection closed", "error", err, "retry_in", m.delay)
	} else {
		m.logger.Warn("connection failed", "error", err, "retry_in", m.delay)
	}
}

func (m *Manager) setStateLocked(s State, err error) {
	m.state = s
	m.enqueueLocked(StateChanged{State: s, Err: err})
	m.metrics.SetConnectionState(s.String())
}

func (m *Manager) emitIfCurrent(gen uint64, ev Event) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || gen != m.gen {
		return false
	}
	m.enqueueLocked(ev)
	return true
}

func (m *Manager) enqueueLocked(ev Event) {
	m.queue = append(m.queue, ev)
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// deliver drains the event queue on one goroutine so OnEvent sees events
// in the order they were produced.
func (m *Manager) deliver() {
	for {
		select {
		case <-m.wake:
		case <-m.done:
			m.drain()
			return
		}
		m.drain()
	}
}

func (m *Manager) drain() {
	for {
		m.mu.Lock()
		if len(m.queue) == 0 {
			m.mu.Unlock()
			return
		}
		ev := m.queue[0]
		m.queue = m.queue[1:]
		m.mu.Unlock()
		m.onEvent(ev)
	}
}
