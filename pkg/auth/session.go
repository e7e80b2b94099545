package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/dmarceau/storefront-backend/pkg/config"
	"github.com/dmarceau/storefront-backend/pkg/redis"
)

// AccessSessionChecker reports whether an access token id still has a live
// server-side session.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

// SessionStore tracks live access sessions in Redis, keyed by JWT id. Logout
// revokes a token before its expiry by deleting the key.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionStore builds a session store whose entries live as long as the
// access tokens they back.
func NewSessionStore(client *redis.Client, cfg config.JWTConfig) (*SessionStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	ttl := time.Duration(cfg.ExpirationMinutes) * time.Minute
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SessionStore{client: client, ttl: ttl}, nil
}

// Create registers a freshly minted access token id. Called by the token
// issuer at login; this service only checks sessions, never creates them.
func (s *SessionStore) Create(ctx context.Context, accessID string, userID string) error {
	return s.client.Set(ctx, s.client.AccessSessionKey(accessID), userID, s.ttl)
}

// HasSession implements AccessSessionChecker.
func (s *SessionStore) HasSession(ctx context.Context, accessID string) (bool, error) {
	_, err := s.client.Get(ctx, s.client.AccessSessionKey(accessID))
	if err != nil {
		if redis.IsNil(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Revoke deletes the session, invalidating the token ahead of expiry.
// Logout lives with the token issuer; kept here beside Create and HasSession
// so the whole session lifecycle shares one key scheme.
func (s *SessionStore) Revoke(ctx context.Context, accessID string) error {
	return s.client.Del(ctx, s.client.AccessSessionKey(accessID))
}
