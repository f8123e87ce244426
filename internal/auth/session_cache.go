package auth

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const defaultSessionCacheSize = 1024

// SessionCache keeps recently validated sessions in memory so that every
// authenticated request does not hit the database.
type SessionCache struct {
	lru *expirable.LRU[string, *Session]
	now func() time.Time
}

// NewSessionCache creates a new session cache with the specified TTL
func NewSessionCache(ttl time.Duration) *SessionCache {
	if ttl == 0 {
		ttl = 5 * time.Minute
	}
	return &SessionCache{
		lru: expirable.NewLRU[string, *Session](defaultSessionCacheSize, nil, ttl),
		now: time.Now,
	}
}

// Get retrieves a session from the cache
func (c *SessionCache) Get(token string) (*Session, bool) {
	session, ok := c.lru.Get(token)
	if !ok {
		return nil, false
	}
	if c.now().After(session.ExpiresAt) {
		c.lru.Remove(token)
		return nil, false
	}
	return session, true
}

// Set stores a session in the cache
func (c *SessionCache) Set(session *Session) {
	if session == nil {
		return
	}
	c.lru.Add(session.Token, session)
}

// Delete removes a session from the cache
func (c *SessionCache) Delete(token string) {
	c.lru.Remove(token)
}

// DeleteByUserID removes all sessions for a specific user
func (c *SessionCache) DeleteByUserID(userID string) {
	for _, token := range c.lru.Keys() {
		if session, ok := c.lru.Peek(token); ok && session.UserID == userID {
			c.lru.Remove(token)
		}
	}
}

func (c *SessionCache) Size() int {
	return c.lru.Len()
}
