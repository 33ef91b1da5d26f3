package authsession

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fetchResult struct {
	session *Session
	err     error
}

type fakeProvider struct {
	mu           sync.Mutex
	callback     func(Event, *Session)
	subscribes   int
	unsubscribes int
	fetches      chan fetchResult
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{fetches: make(chan fetchResult, 1)}
}

func (p *fakeProvider) GetSession(ctx context.Context) (*Session, error) {
	select {
	case r := <-p.fetches:
		return r.session, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *fakeProvider) OnAuthStateChange(fn func(Event, *Session)) Subscription {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.callback = fn
	p.subscribes++
	return SubscriptionFunc(func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.unsubscribes++
	})
}

func (p *fakeProvider) emit(event Event, s *Session) {
	p.mu.Lock()
	fn := p.callback
	p.mu.Unlock()
	fn(event, s)
}

func (p *fakeProvider) counts() (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.subscribes, p.unsubscribes
}

func session(token string) *Session {
	return &Session{
		AccessToken: token,
		ExpiresAt:   time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		User:        &User{ID: "user-" + token, Email: token + "@example.com"},
	}
}

// recorder collects every state a manager reports.
type recorder struct {
	states chan State
}

func record(m *Manager) *recorder {
	r := &recorder{states: make(chan State, 256)}
	m.OnChange(func(s State) { r.states <- s })
	return r
}

func (r *recorder) next(t *testing.T) State {
	t.Helper()
	select {
	case s := <-r.states:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for state change")
		return State{}
	}
}

func TestManager_NoProviderIsDisabled(t *testing.T) {
	m := NewManager(nil, zap.NewNop())
	defer m.Close()
	rec := record(m)

	m.Start(context.Background())

	want := State{Status: StatusDisabled}
	assert.Equal(t, want, m.State())
	assert.Equal(t, want, rec.next(t))

	select {
	case <-m.Settled():
	default:
		t.Fatal("disabled manager should be settled immediately")
	}

	assert.Never(t, func() bool { return m.State().Loading }, 50*time.Millisecond, 5*time.Millisecond)
	_, ok := m.AccessToken()
	assert.False(t, ok)
}

func TestManager_InitialState(t *testing.T) {
	m := NewManager(newFakeProvider(), nil)
	defer m.Close()

	st := m.State()
	assert.Equal(t, StatusUninitialized, st.Status)
	assert.True(t, st.Enabled)
	assert.False(t, st.Loading)
}

func TestManager_FetchSuccess(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := newFakeProvider()
	m := NewManager(p, zap.NewNop())
	defer m.Close()
	rec := record(m)

	m.Start(ctx)
	loading := rec.next(t)
	assert.Equal(t, State{Status: StatusLoading, Enabled: true, Loading: true}, loading)

	p.fetches <- fetchResult{session: session("abc")}
	st := rec.next(t)

	assert.Equal(t, StatusReady, st.Status)
	assert.True(t, st.Enabled)
	assert.False(t, st.Loading)
	require.NotNil(t, st.Session)
	assert.Equal(t, "abc", st.Session.AccessToken)
	require.NotNil(t, st.User)
	assert.Equal(t, "user-abc", st.User.ID)
	assert.Same(t, st.Session.User, st.User)

	token, ok := m.AccessToken()
	assert.True(t, ok)
	assert.Equal(t, "abc", token)
}

func TestManager_FetchErrorCollapsesToSignedOut(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := newFakeProvider()
	m := NewManager(p, zap.NewNop())
	defer m.Close()
	rec := record(m)

	m.Start(ctx)
	rec.next(t)

	p.fetches <- fetchResult{err: errors.New("network down")}
	st := rec.next(t)

	assert.Equal(t, State{Status: StatusReady, Enabled: true}, st)
	<-m.Settled()
}

func TestManager_FetchNoSession(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := newFakeProvider()
	m := NewManager(p, zap.NewNop())
	defer m.Close()
	rec := record(m)

	m.Start(ctx)
	rec.next(t)
	p.fetches <- fetchResult{}

	assert.Equal(t, State{Status: StatusReady, Enabled: true}, rec.next(t))
}

func TestManager_NotificationsAppliedInOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := newFakeProvider()
	m := NewManager(p, zap.NewNop())
	defer m.Close()
	rec := record(m)

	m.Start(ctx)
	rec.next(t)

	const n = 100
	for i := range n {
		p.emit(EventTokenRefreshed, session(fmt.Sprintf("t%d", i)))
	}
	for i := range n {
		st := rec.next(t)
		require.NotNil(t, st.Session)
		assert.Equal(t, fmt.Sprintf("t%d", i), st.Session.AccessToken)
		assert.False(t, st.Loading)
	}

	p.emit(EventSignedOut, nil)
	st := rec.next(t)
	assert.Nil(t, st.Session)
	assert.Nil(t, st.User)
	assert.Equal(t, StatusReady, st.Status)
}

func TestManager_NotificationBeforeFetchSettles(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := newFakeProvider()
	m := NewManager(p, zap.NewNop())
	defer m.Close()
	rec := record(m)

	m.Start(ctx)
	rec.next(t)

	p.emit(EventSignedIn, session("from-event"))
	st := rec.next(t)
	assert.Equal(t, "from-event", st.Session.AccessToken)
	assert.False(t, st.Loading)

	p.fetches <- fetchResult{session: session("from-fetch")}
	st = rec.next(t)
	assert.Equal(t, "from-fetch", st.Session.AccessToken)
}

func TestManager_NoMutationAfterClose(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := newFakeProvider()
	m := NewManager(p, zap.NewNop())
	m.Start(ctx)
	before := m.State()
	require.True(t, before.Loading)

	m.Close()

	p.fetches <- fetchResult{session: session("late")}
	p.emit(EventSignedIn, session("late-event"))
	p.emit(EventSignedOut, nil)

	assert.Never(t, func() bool {
		return m.State().Session != nil || !m.State().Loading
	}, 100*time.Millisecond, 5*time.Millisecond)
	assert.Equal(t, before, m.State())

	_, unsubscribes := p.counts()
	assert.Equal(t, 1, unsubscribes)
}

// blockingProvider holds GetSession open until its context ends.
type blockingProvider struct {
	returned chan error
}

func (p *blockingProvider) GetSession(ctx context.Context) (*Session, error) {
	<-ctx.Done()
	p.returned <- ctx.Err()
	return nil, ctx.Err()
}

func (p *blockingProvider) OnAuthStateChange(func(Event, *Session)) Subscription {
	return SubscriptionFunc(func() {})
}

func TestManager_CloseCancelsPendingFetch(t *testing.T) {
	running := goleak.IgnoreCurrent()
	p := &blockingProvider{returned: make(chan error, 1)}
	m := NewManager(p, zap.NewNop())
	m.Start(context.Background())
	require.True(t, m.State().Loading)

	m.Close()

	select {
	case err := <-p.returned:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("session fetch was not cancelled by Close")
	}
	goleak.VerifyNone(t, running)
	assert.True(t, m.State().Loading)
}

func TestManager_CloseIsIdempotent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := newFakeProvider()
	m := NewManager(p, zap.NewNop())
	m.Start(ctx)

	m.Close()
	m.Close()
	m.Close()

	subscribes, unsubscribes := p.counts()
	assert.Equal(t, 1, subscribes)
	assert.Equal(t, 1, unsubscribes)
}

func TestManager_CloseBeforeStart(t *testing.T) {
	p := newFakeProvider()
	m := NewManager(p, zap.NewNop())

	m.Close()
	m.Start(context.Background())

	subscribes, unsubscribes := p.counts()
	assert.Equal(t, 0, subscribes)
	assert.Equal(t, 0, unsubscribes)
	assert.Equal(t, StatusUninitialized, m.State().Status)
}

func TestManager_StartTwice(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := newFakeProvider()
	m := NewManager(p, zap.NewNop())
	defer m.Close()

	m.Start(ctx)
	m.Start(ctx)

	subscribes, _ := p.counts()
	assert.Equal(t, 1, subscribes)
}

func TestManager_IndependentInstances(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p1, p2 := newFakeProvider(), newFakeProvider()
	a := NewManager(p1, zap.NewNop())
	b := NewManager(p2, zap.NewNop())
	recB := record(b)

	a.Start(ctx)
	b.Start(ctx)
	recB.next(t)

	a.Close()
	p2.fetches <- fetchResult{session: session("b")}
	st := recB.next(t)
	assert.Equal(t, "b", st.Session.AccessToken)
	b.Close()

	_, un1 := p1.counts()
	_, un2 := p2.counts()
	assert.Equal(t, 1, un1)
	assert.Equal(t, 1, un2)
}

func TestManager_StateIsACopy(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := newFakeProvider()
	m := NewManager(p, zap.NewNop())
	defer m.Close()
	rec := record(m)

	m.Start(ctx)
	rec.next(t)
	original := session("abc")
	p.fetches <- fetchResult{session: original}
	rec.next(t)

	original.AccessToken = "mutated by provider"
	st := m.State()
	st.Session.AccessToken = "mutated by consumer"
	st.User.ID = "nobody"

	again := m.State()
	assert.Equal(t, "abc", again.Session.AccessToken)
	assert.Equal(t, "user-abc", again.User.ID)
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "uninitialized", StatusUninitialized.String())
	assert.Equal(t, "loading", StatusLoading.String())
	assert.Equal(t, "ready", StatusReady.String())
	assert.Equal(t, "disabled", StatusDisabled.String())
}
