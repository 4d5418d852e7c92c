package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	pkgerrors "github.com/prosupplyhq/prosupply-backend/pkg/errors"
)

type fakeStore struct {
	data map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	f.data[key] = str
	return true, nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func TestRouteTTLSelection(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		want   time.Duration
		ok     bool
	}{
		{"place order", http.MethodPost, "/api/v1/orders", criticalIdempotencyTTL, true},
		{"order cancel", http.MethodPost, "/api/v1/orders/0a8f5f43-2f0c-4df1-9c3e-6f2a1f6d9f11/cancel", criticalIdempotencyTTL, true},
		{"cart position", http.MethodPost, "/api/v1/cart/positions", defaultIdempotencyTTL, true},
		{"import submit", http.MethodPost, "/api/v1/imports", defaultIdempotencyTTL, true},
		{"non idempotent", http.MethodPost, "/api/v1/auth/login", 0, false},
		{"get orders", http.MethodGet, "/api/v1/orders", 0, false},
	}

	for _, tt := range tests {
		ttl, ok := routeTTL(tt.method, tt.path)
		if ok != tt.ok {
			t.Fatalf("%s: expected ok=%v got %v", tt.name, tt.ok, ok)
		}
		if ok && ttl != tt.want {
			t.Fatalf("%s: expected ttl=%v got %v", tt.name, tt.want, ttl)
		}
	}
}

func TestRequestPathTrimsTrailingSlash(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/", nil)
	if got := requestPath(req); got != "/api/v1/orders" {
		t.Fatalf("expected trimmed path, got %q", got)
	}
	root := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := requestPath(root); got != "/" {
		t.Fatalf("root path should survive, got %q", got)
	}
}

func TestIdempotencyMiddlewareRequiresHeader(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	handlerCalled := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusCreated)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{"chain_store_id":"a"}`))
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if handlerCalled {
		t.Fatalf("handler should not run without idempotency key")
	}
}

func TestIdempotencyMiddlewareReplaysStoredResponse(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{"chain_store_id":"a"}`))
	req.Header.Set("Idempotency-Key", "abc")
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected first response 202 got %d", resp.Code)
	}

	replay := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{"chain_store_id":"a"}`))
	replay.Header.Set("Idempotency-Key", "abc")
	rec := httptest.NewRecorder()
	mw(handler).ServeHTTP(rec, replay)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected replay status 202 got %d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("expected content-type header preserved")
	}
	if strings.TrimSpace(rec.Body.String()) != `{"ok":true}` {
		t.Fatalf("expected stored body got %s", rec.Body.String())
	}
	if calls != 1 {
		t.Fatalf("handler executed %d times, expected 1", calls)
	}
}

func TestIdempotencyMiddlewareDetectsBodyChange(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{"chain_store_id":"a"}`))
	req.Header.Set("Idempotency-Key", "xyz")
	mw(handler).ServeHTTP(httptest.NewRecorder(), req)

	replay := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{"chain_store_id":"b"}`))
	replay.Header.Set("Idempotency-Key", "xyz")
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, replay)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse error response: %v", err)
	}
	if payload.Error.Code != string(pkgerrors.CodeIdempotency) {
		t.Fatalf("expected error code %s got %s", pkgerrors.CodeIdempotency, payload.Error.Code)
	}
}

func TestIdempotencyMiddlewareScopedPerUser(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	})

	first := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{"chain_store_id":"a"}`))
	first = first.WithContext(WithUserID(first.Context(), "user-a"))
	first.Header.Set("Idempotency-Key", "shared")
	mw(handler).ServeHTTP(httptest.NewRecorder(), first)

	second := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{"chain_store_id":"a"}`))
	second = second.WithContext(WithUserID(second.Context(), "user-b"))
	second.Header.Set("Idempotency-Key", "shared")
	mw(handler).ServeHTTP(httptest.NewRecorder(), second)

	if calls != 2 {
		t.Fatalf("expected both users to execute, handler ran %d times", calls)
	}
}
