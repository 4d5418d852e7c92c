package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	redislib "github.com/redis/go-redis/v9"
)

type mockStore struct {
	mu   sync.Mutex
	data map[string]string
	sets map[string]map[string]struct{}
}

func newMockStore() *mockStore {
	return &mockStore{
		data: make(map[string]string),
		sets: make(map[string]map[string]struct{}),
	}
}

func (m *mockStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprint(value)
	return nil
}

func (m *mockStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return val, nil
}

func (m *mockStore) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
		delete(m.sets, key)
	}
	return nil
}

func (m *mockStore) SetAdd(ctx context.Context, key string, ttl time.Duration, members ...any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.sets[key]
	if !ok {
		set = make(map[string]struct{})
		m.sets[key] = set
	}
	for _, member := range members {
		set[fmt.Sprint(member)] = struct{}{}
	}
	return nil
}

func (m *mockStore) SetRemove(ctx context.Context, key string, members ...any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, member := range members {
		delete(m.sets[key], fmt.Sprint(member))
	}
	return nil
}

func (m *mockStore) SetMembers(ctx context.Context, key string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	members := make([]string, 0, len(m.sets[key]))
	for member := range m.sets[key] {
		members = append(members, member)
	}
	return members, nil
}

func (m *mockStore) AccessSessionKey(accessID string) string {
	return fmt.Sprintf("sess:%s", accessID)
}

func (m *mockStore) UserSessionsKey(userID string) string {
	return fmt.Sprintf("sess-user:%s", userID)
}

func TestManagerGenerateAndRotate(t *testing.T) {
	store := newMockStore()
	manager := &Manager{
		store: store,
		keyer: store,
		ttl:   time.Hour,
	}

	ctx := context.Background()
	userID := "user-1"
	accessID := "access-123"
	token, err := manager.Generate(ctx, userID, accessID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if stored := store.data[store.AccessSessionKey(accessID)]; stored != token {
		t.Fatalf("expected stored token %q, got %q", token, stored)
	}
	if _, indexed := store.sets[store.UserSessionsKey(userID)][accessID]; !indexed {
		t.Fatalf("expected access id indexed under user")
	}

	if _, _, err := manager.Rotate(ctx, userID, accessID, "wrong"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected invalid refresh token error, got %v", err)
	}

	newAccessID, newToken, err := manager.Rotate(ctx, userID, accessID, token)
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if _, exists := store.data[store.AccessSessionKey(accessID)]; exists {
		t.Fatalf("old access key left behind")
	}
	if stored := store.data[store.AccessSessionKey(newAccessID)]; stored != newToken {
		t.Fatalf("expected new token stored, got %q", stored)
	}
	index := store.sets[store.UserSessionsKey(userID)]
	if _, stale := index[accessID]; stale {
		t.Fatalf("old access id still indexed")
	}
	if _, indexed := index[newAccessID]; !indexed {
		t.Fatalf("new access id missing from index")
	}
}

func TestManagerRevokeAndHasSession(t *testing.T) {
	store := newMockStore()
	manager := &Manager{
		store: store,
		keyer: store,
		ttl:   time.Hour,
	}

	ctx := context.Background()
	userID := "user-2"
	accessID := "access-456"
	if _, err := manager.Generate(ctx, userID, accessID); err != nil {
		t.Fatalf("generate: %v", err)
	}

	ok, err := manager.HasSession(ctx, accessID)
	if err != nil {
		t.Fatalf("has session: %v", err)
	}
	if !ok {
		t.Fatal("expected active session after generate")
	}

	if err := manager.Revoke(ctx, userID, accessID); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	ok, err = manager.HasSession(ctx, accessID)
	if err != nil {
		t.Fatalf("has session after revoke: %v", err)
	}
	if ok {
		t.Fatal("expected session gone after revoke")
	}
	if len(store.sets[store.UserSessionsKey(userID)]) != 0 {
		t.Fatal("expected user index emptied")
	}
}

func TestManagerRevokeAllForUser(t *testing.T) {
	store := newMockStore()
	manager := &Manager{
		store: store,
		keyer: store,
		ttl:   time.Hour,
	}

	ctx := context.Background()
	userID := "user-3"
	if _, err := manager.Generate(ctx, userID, "laptop"); err != nil {
		t.Fatalf("generate laptop: %v", err)
	}
	if _, err := manager.Generate(ctx, userID, "phone"); err != nil {
		t.Fatalf("generate phone: %v", err)
	}
	if _, err := manager.Generate(ctx, "other-user", "tablet"); err != nil {
		t.Fatalf("generate tablet: %v", err)
	}

	if err := manager.RevokeAllForUser(ctx, userID); err != nil {
		t.Fatalf("revoke all: %v", err)
	}

	for _, accessID := range []string{"laptop", "phone"} {
		ok, err := manager.HasSession(ctx, accessID)
		if err != nil {
			t.Fatalf("has session %s: %v", accessID, err)
		}
		if ok {
			t.Fatalf("expected %s session revoked", accessID)
		}
	}

	ok, err := manager.HasSession(ctx, "tablet")
	if err != nil {
		t.Fatalf("has session tablet: %v", err)
	}
	if !ok {
		t.Fatal("expected other user's session untouched")
	}
}
