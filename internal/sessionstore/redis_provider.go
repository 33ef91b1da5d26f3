// Package sessionstore provides an auth provider backed by Redis. Sessions
// live under a per-session key and every change is announced on a pub/sub
// channel, so any number of session managers can mirror the same sign-in.
package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/muhammadolammi/jobmatch/internal/authsession"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultKeyPrefix     = "jobmatch:session:"
	defaultChannelPrefix = "jobmatch:auth:"
	defaultTTL           = 7 * 24 * time.Hour
)

var ErrNoSessionID = errors.New("session id is required")

type notification struct {
	Event   authsession.Event    `json:"event"`
	Session *authsession.Session `json:"session,omitempty"`
}

// RedisProvider implements authsession.Provider for one browser session id.
type RedisProvider struct {
	client    *redis.Client
	sessionID string
	logger    *zap.Logger
}

// NewRedisProvider connects to redisURL and checks the connection.
func NewRedisProvider(redisURL, sessionID string, logger *zap.Logger) (*RedisProvider, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisProviderWithClient(client, sessionID, logger)
}

// NewRedisProviderWithClient wraps an existing client.
func NewRedisProviderWithClient(client *redis.Client, sessionID string, logger *zap.Logger) (*RedisProvider, error) {
	if sessionID == "" {
		return nil, ErrNoSessionID
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisProvider{client: client, sessionID: sessionID, logger: logger}, nil
}

func (p *RedisProvider) key() string {
	return defaultKeyPrefix + p.sessionID
}

func (p *RedisProvider) channel() string {
	return defaultChannelPrefix + p.sessionID
}

// GetSession returns nil, nil when nobody is signed in.
func (p *RedisProvider) GetSession(ctx context.Context) (*authsession.Session, error) {
	data, err := p.client.Get(ctx, p.key()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	var s authsession.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &s, nil
}

// SignIn stores the session and announces it.
func (p *RedisProvider) SignIn(ctx context.Context, s *authsession.Session) error {
	return p.store(ctx, authsession.EventSignedIn, s)
}

// Refresh replaces the stored session with rotated tokens.
func (p *RedisProvider) Refresh(ctx context.Context, s *authsession.Session) error {
	return p.store(ctx, authsession.EventTokenRefreshed, s)
}

// SignOut removes the session and announces it.
func (p *RedisProvider) SignOut(ctx context.Context) error {
	if err := p.client.Del(ctx, p.key()).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return p.publish(ctx, notification{Event: authsession.EventSignedOut})
}

func (p *RedisProvider) store(ctx context.Context, event authsession.Event, s *authsession.Session) error {
	if s == nil {
		return errors.New("session is required")
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	ttl := defaultTTL
	if !s.ExpiresAt.IsZero() {
		ttl = time.Until(s.ExpiresAt)
		if ttl <= 0 {
			return fmt.Errorf("session already expired at %s", s.ExpiresAt.Format(time.RFC3339))
		}
	}

	if err := p.client.Set(ctx, p.key(), data, ttl).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return p.publish(ctx, notification{Event: event, Session: s})
}

func (p *RedisProvider) publish(ctx context.Context, n notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel(), payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", n.Event, err)
	}
	return nil
}

// OnAuthStateChange subscribes to the session's channel. It returns once the
// subscription is confirmed, so nothing published afterwards is missed.
// Messages are delivered to fn in order on a single goroutine.
func (p *RedisProvider) OnAuthStateChange(fn func(authsession.Event, *authsession.Session)) authsession.Subscription {
	ctx, cancel := context.WithCancel(context.Background())
	pubsub := p.client.Subscribe(ctx, p.channel())

	if _, err := pubsub.Receive(ctx); err != nil {
		p.logger.Warn("auth channel subscription failed", zap.String("channel", p.channel()), zap.Error(err))
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for msg := range pubsub.Channel() {
			var n notification
			if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
				p.logger.Warn("dropping malformed auth notification", zap.Error(err))
				continue
			}
			fn(n.Event, n.Session)
		}
	}()

	var once sync.Once
	return authsession.SubscriptionFunc(func() {
		once.Do(func() {
			cancel()
			if err := pubsub.Close(); err != nil {
				p.logger.Debug("closing auth subscription", zap.Error(err))
			}
			wg.Wait()
		})
	})
}

func (p *RedisProvider) Close() error {
	return p.client.Close()
}
