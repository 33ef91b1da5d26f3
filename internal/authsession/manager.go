package authsession

import (
	"context"
	"slices"
	"sync"

	"go.uber.org/zap"
)

type Status int

const (
	StatusUninitialized Status = iota
	StatusLoading
	StatusReady
	StatusDisabled
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusDisabled:
		return "disabled"
	default:
		return "uninitialized"
	}
}

// State is a snapshot of the manager. User is always Session.User.
type State struct {
	Status  Status
	Enabled bool
	Loading bool
	Session *Session
	User    *User
}

func (s State) clone() State {
	s.Session = s.Session.clone()
	s.User = nil
	if s.Session != nil {
		s.User = s.Session.User
	}
	return s
}

type messageKind int

const (
	messageFetched messageKind = iota
	messageChanged
)

type message struct {
	kind    messageKind
	gen     uint64
	event   Event
	session *Session
	err     error
}

// Manager keeps a read-only mirror of the provider's session.
//
// Provider callbacks only enqueue; a single loop goroutine applies them in
// arrival order. Every mutation checks the active flag and, for the initial
// fetch, the generation it was started under. Close clears the flag for good.
type Manager struct {
	provider Provider
	logger   *zap.Logger

	mu        sync.Mutex
	state     State
	active    bool
	started   bool
	closed    bool
	gen       uint64
	sub       Subscription
	listeners []func(State)

	// cancelFetch aborts the initial GetSession when the manager closes.
	cancelFetch context.CancelFunc

	settled     chan struct{}
	settledOnce sync.Once

	queueMu sync.Mutex
	queue   []message
	wake    chan struct{}

	done      chan struct{}
	closeOnce sync.Once
}

// NewManager returns an inactive manager. A nil provider means auth is not
// configured, which Start turns into the disabled state.
func NewManager(provider Provider, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		provider: provider,
		logger:   logger,
		state:    State{Status: StatusUninitialized, Enabled: provider != nil},
		settled:  make(chan struct{}),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Start activates the manager once. It never blocks on the provider.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.started || m.closed {
		m.mu.Unlock()
		return
	}
	m.started = true

	if m.provider == nil {
		m.state = State{Status: StatusDisabled}
		m.settle()
		st, listeners := m.state.clone(), slices.Clone(m.listeners)
		m.mu.Unlock()
		notify(listeners, st)
		return
	}

	m.active = true
	m.gen++
	gen := m.gen
	m.state = State{Status: StatusLoading, Enabled: true, Loading: true}
	st, listeners := m.state.clone(), slices.Clone(m.listeners)
	m.mu.Unlock()

	sub := m.provider.OnAuthStateChange(m.handleChange)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		if sub != nil {
			sub.Unsubscribe()
		}
		return
	}
	m.sub = sub
	fetchCtx, cancel := context.WithCancel(ctx)
	m.cancelFetch = cancel
	m.mu.Unlock()

	notify(listeners, st)

	go m.loop()
	go m.fetch(fetchCtx, gen)
}

// Close tears the manager down. It is idempotent, unsubscribes from the
// provider exactly once, and no state mutation happens after it returns.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		m.closed = true
		m.active = false
		m.gen++
		sub := m.sub
		m.sub = nil
		cancel := m.cancelFetch
		m.cancelFetch = nil
		m.mu.Unlock()

		close(m.done)
		if cancel != nil {
			cancel()
		}
		if sub != nil {
			sub.Unsubscribe()
		}
	})
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

// OnChange registers fn to receive every state the manager transitions to.
// Callbacks run on the manager's goroutine, so they must not block.
func (m *Manager) OnChange(fn func(State)) {
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

// Settled is closed once the manager first leaves the loading state.
func (m *Manager) Settled() <-chan struct{} {
	return m.settled
}

// AccessToken returns the current session's token, if any.
func (m *Manager) AccessToken() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Session == nil || m.state.Session.AccessToken == "" {
		return "", false
	}
	return m.state.Session.AccessToken, true
}

func (m *Manager) fetch(ctx context.Context, gen uint64) {
	session, err := m.provider.GetSession(ctx)
	m.enqueue(message{kind: messageFetched, gen: gen, session: session, err: err})
}

func (m *Manager) handleChange(event Event, session *Session) {
	m.enqueue(message{kind: messageChanged, event: event, session: session})
}

func (m *Manager) enqueue(msg message) {
	select {
	case <-m.done:
		return
	default:
	}

	m.queueMu.Lock()
	m.queue = append(m.queue, msg)
	m.queueMu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *Manager) drain() []message {
	m.queueMu.Lock()
	defer m.queueMu.Unlock()
	msgs := m.queue
	m.queue = nil
	return msgs
}

func (m *Manager) loop() {
	for {
		select {
		case <-m.done:
			return
		case <-m.wake:
		}
		for _, msg := range m.drain() {
			m.apply(msg)
		}
	}
}

func (m *Manager) apply(msg message) {
	m.mu.Lock()
	if !m.active {
		m.mu.Unlock()
		return
	}

	switch msg.kind {
	case messageFetched:
		if msg.gen != m.gen {
			m.mu.Unlock()
			return
		}
		if msg.err != nil {
			m.logger.Warn("session lookup failed, treating as signed out", zap.Error(msg.err))
			m.adopt(nil)
		} else {
			m.adopt(msg.session)
		}
	case messageChanged:
		m.logger.Debug("auth state changed", zap.String("event", string(msg.event)))
		m.adopt(msg.session)
	}

	st, listeners := m.state.clone(), slices.Clone(m.listeners)
	m.mu.Unlock()
	notify(listeners, st)
}

// adopt replaces the session wholesale. Callers hold mu.
func (m *Manager) adopt(session *Session) {
	session = session.clone()
	var user *User
	if session != nil {
		user = session.User
	}
	m.state = State{
		Status:  StatusReady,
		Enabled: true,
		Loading: false,
		Session: session,
		User:    user,
	}
	m.settle()
}

func (m *Manager) settle() {
	m.settledOnce.Do(func() { close(m.settled) })
}

func notify(listeners []func(State), st State) {
	for _, fn := range listeners {
		fn(st.clone())
	}
}
