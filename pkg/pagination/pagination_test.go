package pagination

import (
	"testing"
	"time"
)

func TestNormalizeLimit(t *testing.T) {
	cases := map[int]int{0: DefaultLimit, -3: DefaultLimit, 10: 10, 500: MaxLimit}
	for in, want := range cases {
		if got := NormalizeLimit(in); got != want {
			t.Fatalf("NormalizeLimit(%d) = %d, want %d", in, got, want)
		}
	}
	if got := LimitWithBuffer(10); got != 11 {
		t.Fatalf("expected buffered limit 11, got %d", got)
	}
}

func TestCursorRoundTrip(t *testing.T) {
	ts := time.Date(2026, 3, 2, 8, 0, 0, 123, time.UTC)
	encoded := EncodeCursor(Cursor{CreatedAt: ts, ID: "txn_123"})

	decoded, err := ParseCursor(encoded)
	if err != nil {
		t.Fatalf("ParseCursor error: %v", err)
	}
	if !decoded.CreatedAt.Equal(ts) || decoded.ID != "txn_123" {
		t.Fatalf("unexpected cursor %+v", decoded)
	}
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	if c, err := ParseCursor(""); err != nil || c != nil {
		t.Fatalf("expected nil cursor for empty input, got %+v %v", c, err)
	}
	if _, err := ParseCursor("not-base64!"); err == nil {
		t.Fatal("expected decode error")
	}
}
