// Package authsession mirrors an external auth provider's session lifecycle
// into local state.
package authsession

import (
	"context"
	"time"
)

// Event names a provider session change.
type Event string

const (
	EventInitialSession Event = "INITIAL_SESSION"
	EventSignedIn       Event = "SIGNED_IN"
	EventSignedOut      Event = "SIGNED_OUT"
	EventTokenRefreshed Event = "TOKEN_REFRESHED"
	EventUserUpdated    Event = "USER_UPDATED"
)

// Session is owned by the provider. The manager only ever holds copies.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         *User     `json:"user,omitempty"`
}

type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

func (s *Session) clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.User != nil {
		u := *s.User
		c.User = &u
	}
	return &c
}

type Subscription interface {
	Unsubscribe()
}

// SubscriptionFunc adapts a plain function to Subscription.
type SubscriptionFunc func()

func (f SubscriptionFunc) Unsubscribe() { f() }

// Provider is the capability the manager consumes. GetSession returns a nil
// session when nobody is signed in. OnAuthStateChange callbacks may arrive
// on any goroutine, before, during or after GetSession settles.
type Provider interface {
	GetSession(ctx context.Context) (*Session, error)
	OnAuthStateChange(fn func(Event, *Session)) Subscription
}
