package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNormalizeLimit(t *testing.T) {
	if got := NormalizeLimit(0); got != DefaultLimit {
		t.Fatalf("expected default limit, got %d", got)
	}
	if got := NormalizeLimit(-3); got != DefaultLimit {
		t.Fatalf("expected default limit for negative input, got %d", got)
	}
	if got := NormalizeLimit(MaxLimit + 50); got != MaxLimit {
		t.Fatalf("expected max limit cap, got %d", got)
	}
	if got := NormalizeLimit(10); got != 10 {
		t.Fatalf("expected passthrough, got %d", got)
	}
	if got := LimitWithBuffer(10); got != 11 {
		t.Fatalf("expected limit plus buffer, got %d", got)
	}
}

func TestCursorRoundTrip(t *testing.T) {
	cursor := Cursor{
		CreatedAt: time.Date(2025, 11, 4, 12, 30, 0, 123456789, time.UTC),
		ID:        uuid.New(),
	}

	encoded := EncodeCursor(cursor)
	parsed, err := ParseCursor(encoded)
	if err != nil {
		t.Fatalf("parse cursor: %v", err)
	}
	if parsed == nil {
		t.Fatal("expected parsed cursor")
	}
	if !parsed.CreatedAt.Equal(cursor.CreatedAt) {
		t.Fatalf("created_at mismatch: %v vs %v", parsed.CreatedAt, cursor.CreatedAt)
	}
	if parsed.ID != cursor.ID {
		t.Fatalf("id mismatch: %s vs %s", parsed.ID, cursor.ID)
	}
}

func TestParseCursorEmptyAndInvalid(t *testing.T) {
	parsed, err := ParseCursor("   ")
	if err != nil || parsed != nil {
		t.Fatalf("expected nil cursor for blank input, got %v / %v", parsed, err)
	}

	if _, err := ParseCursor("not-base64!!"); err == nil {
		t.Fatal("expected error for invalid base64")
	}
	if _, err := ParseCursor("aGVsbG8="); err == nil {
		t.Fatal("expected error for missing separator")
	}
}
