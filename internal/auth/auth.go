package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User represents an administrator account.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never expose password hash
	IsAdmin      bool      `json:"isAdmin"`
	CreatedAt    time.Time `json:"createdAt"`
	LastLogin    time.Time `json:"lastLogin,omitempty"`
}

// Session represents an active user session
type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"isAdmin"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Store defines the interface for authentication storage.
// Lookups of missing users return ErrUserNotFound, of missing sessions ErrInvalidToken.
type Store interface {
	CreateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	UpdateUser(ctx context.Context, user User) error
	ListUsers(ctx context.Context) ([]User, error)
	CountUsers(ctx context.Context) (int, error)

	CreateSession(ctx context.Context, session Session) error
	GetSession(ctx context.Context, token string) (*Session, error)
	DeleteSession(ctx context.Context, token string) error
	DeleteUserSessions(ctx context.Context, userID string) error
	CleanExpiredSessions(ctx context.Context) error
}

// Manager handles authentication operations and tracks the most recent
// session transition for subscribers.
type Manager struct {
	store           Store
	sessionDuration time.Duration
	sessionCache    *SessionCache
	now             func() time.Time

	// notifyMu orders deliveries: a subscriber's last call always carries
	// the current session.
	notifyMu    sync.Mutex
	mu          sync.Mutex
	current     *Session
	subscribers map[int]func(*Session)
	nextSubID   int
}

// NewManager creates a new authentication manager
func NewManager(store Store, sessionDuration time.Duration) *Manager {
	if sessionDuration == 0 {
		sessionDuration = 24 * time.Hour
	}
	return &Manager{
		store:           store,
		sessionDuration: sessionDuration,
		sessionCache:    NewSessionCache(5 * time.Minute),
		now:             time.Now,
		subscribers:     make(map[int]func(*Session)),
	}
}

// WithSessionCacheTTL replaces the session cache with one that keeps
// validated sessions for ttl. Non-positive values keep the current cache.
func (m *Manager) WithSessionCacheTTL(ttl time.Duration) *Manager {
	if ttl > 0 {
		m.sessionCache = NewSessionCache(ttl)
	}
	return m
}

// GenerateAdminPassword generates a secure random password for the admin user
func GenerateAdminPassword() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("admin-%d", time.Now().UnixNano())
	}
	return base64.URLEncoding.EncodeToString(bytes)[:22]
}

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword verifies a password against a hash
func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// GenerateToken generates a secure random token
func GenerateToken() string {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		hash := sha256.Sum256([]byte(fmt.Sprintf("%d", time.Now().UnixNano())))
		return hex.EncodeToString(hash[:])
	}
	return hex.EncodeToString(bytes)
}

// GenerateUserID generates a unique user ID
func GenerateUserID(email string) string {
	hash := sha256.Sum256([]byte(email + time.Now().String()))
	return "user_" + hex.EncodeToString(hash[:8])
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// InitializeAdmin creates the admin user if no users exist and returns the
// generated password. An empty password means an admin already existed.
func (m *Manager) InitializeAdmin(ctx context.Context, email string) (string, error) {
	count, err := m.store.CountUsers(ctx)
	if err != nil {
		return "", err
	}
	if count > 0 {
		return "", nil
	}

	password := GenerateAdminPassword()
	passwordHash, err := HashPassword(password)
	if err != nil {
		return "", err
	}

	admin := User{
		ID:           "admin",
		Email:        normalizeEmail(email),
		PasswordHash: passwordHash,
		IsAdmin:      true,
		CreatedAt:    m.now(),
	}
	if err := m.store.CreateUser(ctx, admin); err != nil {
		return "", err
	}
	return password, nil
}

// SignIn verifies the credential pair and opens a session.
func (m *Manager) SignIn(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredential
	}

	user, err := m.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if !VerifyPassword(password, user.PasswordHash) {
		return nil, ErrWrongPassword
	}

	now := m.now()
	user.LastLogin = now
	// a stale last-login stamp must not block the sign-in
	_ = m.store.UpdateUser(ctx, *user)

	session := &Session{
		Token:     GenerateToken(),
		UserID:    user.ID,
		Email:     user.Email,
		IsAdmin:   user.IsAdmin,
		CreatedAt: now,
		ExpiresAt: now.Add(m.sessionDuration),
	}
	if err := m.store.CreateSession(ctx, *session); err != nil {
		return nil, err
	}
	m.sessionCache.Set(session)

	m.transition(session)
	return session, nil
}

// SignOut invalidates a session
func (m *Manager) SignOut(ctx context.Context, token string) error {
	m.sessionCache.Delete(token)
	if err := m.store.DeleteSession(ctx, token); err != nil {
		return err
	}
	m.clearCurrent(token)
	return nil
}

// ValidateSession validates a session token with caching
func (m *Manager) ValidateSession(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	if session, found := m.sessionCache.Get(token); found {
		return session, nil
	}

	session, err := m.store.GetSession(ctx, token)
	if err != nil {
		return nil, err
	}

	if m.now().After(session.ExpiresAt) {
		_ = m.store.DeleteSession(ctx, token)
		m.sessionCache.Delete(token)
		m.clearCurrent(token)
		return nil, ErrTokenExpired
	}

	m.sessionCache.Set(session)
	return session, nil
}

// Subscribe registers fn for session transitions. fn is called once right
// away with the current session (nil when signed out), before any later
// transition reaches it. fn must not sign in or out itself. The returned
// function removes the subscription.
func (m *Manager) Subscribe(fn func(*Session)) (unsubscribe func()) {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	m.mu.Lock()
	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = fn
	current := m.current
	m.mu.Unlock()

	fn(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subscribers, id)
			m.mu.Unlock()
		})
	}
}

// Current returns the session of the most recent sign-in that has not been
// signed out or expired.
func (m *Manager) Current() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *Manager) clearCurrent(token string) {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	m.mu.Lock()
	matches := m.current != nil && m.current.Token == token
	m.mu.Unlock()
	if matches {
		m.publish(nil)
	}
}

func (m *Manager) transition(session *Session) {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()
	m.publish(session)
}

// publish requires notifyMu.
func (m *Manager) publish(session *Session) {
	m.mu.Lock()
	m.current = session
	fns := make([]func(*Session), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(session)
	}
}

// CreateUser creates a new user (admin only)
func (m *Manager) CreateUser(ctx context.Context, email, password string, isAdmin bool) (*User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredential
	}

	if _, err := m.store.GetUserByEmail(ctx, email); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	passwordHash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := User{
		ID:           GenerateUserID(email),
		Email:        email,
		PasswordHash: passwordHash,
		IsAdmin:      isAdmin,
		CreatedAt:    m.now(),
	}
	if err := m.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ChangePassword changes a user's password and drops their sessions.
// An empty oldPassword skips verification (admin reset).
func (m *Manager) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if newPassword == "" {
		return ErrInvalidCredential
	}
	user, err := m.store.GetUser(ctx, userID)
	if err != nil {
		return err
	}

	if oldPassword != "" && !VerifyPassword(oldPassword, user.PasswordHash) {
		return ErrWrongPassword
	}

	newHash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = newHash
	if err := m.store.UpdateUser(ctx, *user); err != nil {
		return err
	}

	m.sessionCache.DeleteByUserID(userID)
	return m.store.DeleteUserSessions(ctx, userID)
}

// UserByEmail looks up a user by email.
func (m *Manager) UserByEmail(ctx context.Context, email string) (*User, error) {
	return m.store.GetUserByEmail(ctx, normalizeEmail(email))
}

// ListUsers lists all users (admin only)
func (m *Manager) ListUsers(ctx context.Context) ([]User, error) {
	return m.store.ListUsers(ctx)
}

// CleanupExpiredSessions removes expired sessions
func (m *Manager) CleanupExpiredSessions(ctx context.Context) error {
	return m.store.CleanExpiredSessions(ctx)
}
