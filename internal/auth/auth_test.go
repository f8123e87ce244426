package auth_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/treefix50/recapadmin/internal/auth"
	"github.com/treefix50/recapadmin/internal/docstore"
)

func newTestManager(t *testing.T) *auth.Manager {
	t.Helper()

	store, err := docstore.Open(":memory:", docstore.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return auth.NewManager(store, time.Hour)
}

func TestInitializeAdminOnlyOnce(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	password, err := m.InitializeAdmin(ctx, "Admin@Example.com")
	require.NoError(t, err)
	require.Len(t, password, 22)

	again, err := m.InitializeAdmin(ctx, "other@example.com")
	require.NoError(t, err)
	require.Empty(t, again)

	session, err := m.SignIn(ctx, "admin@example.com", password)
	require.NoError(t, err)
	require.True(t, session.IsAdmin)
	require.Equal(t, "admin", session.UserID)
}

func TestSignInClassifiesFailures(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	_, err := m.CreateUser(ctx, "editor@example.com", "correct horse", false)
	require.NoError(t, err)

	tests := []struct {
		name     string
		email    string
		password string
		want     *auth.Error
		message  string
	}{
		{"empty password", "editor@example.com", "", auth.ErrInvalidCredential, "Email o password non valide"},
		{"unknown user", "nobody@example.com", "x", auth.ErrUserNotFound, "Utente non trovato"},
		{"wrong password", "editor@example.com", "battery staple", auth.ErrWrongPassword, "Password errata"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, err := m.SignIn(ctx, tt.email, tt.password)
			require.Nil(t, session)
			require.ErrorIs(t, err, tt.want)
			require.Equal(t, tt.message, auth.Message(err))
		})
	}
}

func TestMessageFallbacks(t *testing.T) {
	require.Empty(t, auth.Message(nil))
	require.Equal(t, "Errore durante il login", auth.Message(errors.New("network down")))
	require.Equal(t, "Errore di autenticazione", auth.Message(&auth.Error{Code: "auth/too-many-requests"}))
	require.Equal(t, "Password errata", auth.Message(fmt.Errorf("login: %w", auth.ErrWrongPassword)))

	code, ok := auth.CodeOf(fmt.Errorf("wrapped: %w", auth.ErrUserNotFound))
	require.True(t, ok)
	require.Equal(t, auth.CodeUserNotFound, code)
}

func TestSubscribeSeesTransitions(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	_, err := m.CreateUser(ctx, "editor@example.com", "secret", false)
	require.NoError(t, err)

	var mu sync.Mutex
	var seen []string
	record := func(s *auth.Session) {
		mu.Lock()
		defer mu.Unlock()
		if s == nil {
			seen = append(seen, "signed-out")
			return
		}
		seen = append(seen, s.Email)
	}

	unsubscribe := m.Subscribe(record)
	session, err := m.SignIn(ctx, "editor@example.com", "secret")
	require.NoError(t, err)
	require.Equal(t, session, m.Current())
	require.NoError(t, m.SignOut(ctx, session.Token))
	require.Nil(t, m.Current())

	unsubscribe()
	unsubscribe()
	_, err = m.SignIn(ctx, "editor@example.com", "secret")
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"signed-out", "editor@example.com", "signed-out"}, seen)
}

func TestSubscribersEndOnCurrentSession(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	_, err := m.CreateUser(ctx, "editor@example.com", "secret", false)
	require.NoError(t, err)

	type subscriber struct {
		mu   sync.Mutex
		last *auth.Session
	}
	subs := make([]*subscriber, 8)

	var wg sync.WaitGroup
	for w := 0; w < 3; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 3; i++ {
				session, err := m.SignIn(ctx, "editor@example.com", "secret")
				if err != nil {
					t.Errorf("sign in: %v", err)
					return
				}
				if i%2 == 0 {
					if err := m.SignOut(ctx, session.Token); err != nil {
						t.Errorf("sign out: %v", err)
						return
					}
				}
			}
		}()
	}
	for i := range subs {
		sub := &subscriber{}
		subs[i] = sub
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Subscribe(func(s *auth.Session) {
				sub.mu.Lock()
				sub.last = s
				sub.mu.Unlock()
			})
		}()
	}
	wg.Wait()

	want := m.Current()
	for i, sub := range subs {
		sub.mu.Lock()
		got := sub.last
		sub.mu.Unlock()
		if got != want {
			t.Fatalf("subscriber %d ended on %+v, current is %+v", i, got, want)
		}
	}
}

func TestValidateSession(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	_, err := m.CreateUser(ctx, "editor@example.com", "secret", false)
	require.NoError(t, err)

	session, err := m.SignIn(ctx, "editor@example.com", "secret")
	require.NoError(t, err)

	got, err := m.ValidateSession(ctx, session.Token)
	require.NoError(t, err)
	require.Equal(t, session.UserID, got.UserID)

	_, err = m.ValidateSession(ctx, "")
	require.ErrorIs(t, err, auth.ErrInvalidToken)
	_, err = m.ValidateSession(ctx, "no-such-token")
	require.ErrorIs(t, err, auth.ErrInvalidToken)

	require.NoError(t, m.SignOut(ctx, session.Token))
	_, err = m.ValidateSession(ctx, session.Token)
	require.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestCreateUserRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	_, err := m.CreateUser(ctx, "editor@example.com", "secret", false)
	require.NoError(t, err)
	_, err = m.CreateUser(ctx, " EDITOR@example.com ", "other", true)
	require.ErrorIs(t, err, auth.ErrUserExists)

	users, err := m.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	user, err := m.CreateUser(ctx, "editor@example.com", "old-secret", false)
	require.NoError(t, err)
	session, err := m.SignIn(ctx, "editor@example.com", "old-secret")
	require.NoError(t, err)

	require.ErrorIs(t, m.ChangePassword(ctx, user.ID, "nope", "new-secret"), auth.ErrWrongPassword)
	require.NoError(t, m.ChangePassword(ctx, user.ID, "old-secret", "new-secret"))

	_, err = m.ValidateSession(ctx, session.Token)
	require.ErrorIs(t, err, auth.ErrInvalidToken)

	_, err = m.SignIn(ctx, "editor@example.com", "old-secret")
	require.ErrorIs(t, err, auth.ErrWrongPassword)
	_, err = m.SignIn(ctx, "editor@example.com", "new-secret")
	require.NoError(t, err)

	require.NoError(t, m.ChangePassword(ctx, user.ID, "", "reset-by-admin"))
}

func TestSessionCacheExpiry(t *testing.T) {
	cache := auth.NewSessionCache(time.Minute)
	cache.Set(&auth.Session{Token: "live", UserID: "u1", ExpiresAt: time.Now().Add(time.Hour)})
	cache.Set(&auth.Session{Token: "dead", UserID: "u1", ExpiresAt: time.Now().Add(-time.Second)})
	cache.Set(&auth.Session{Token: "other", UserID: "u2", ExpiresAt: time.Now().Add(time.Hour)})

	_, ok := cache.Get("live")
	require.True(t, ok)
	_, ok = cache.Get("dead")
	require.False(t, ok)

	cache.DeleteByUserID("u1")
	_, ok = cache.Get("live")
	require.False(t, ok)
	_, ok = cache.Get("other")
	require.True(t, ok)
}
