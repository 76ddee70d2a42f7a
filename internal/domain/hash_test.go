package domain

import (
	"testing"
	"time"
)

func TestDrawHashIsReproducible(t *testing.T) {
	runAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	first := DrawHash("comp-1", "u1", runAt, "seed-x")
	second := DrawHash("comp-1", "u1", runAt, "seed-x")
	if first != second {
		t.Fatalf("same inputs must produce the same hash: %s != %s", first, second)
	}
	if len(first) != 64 {
		t.Fatalf("expected sha256 hex digest, got %q", first)
	}
}

func TestDrawHashVariesWithInputs(t *testing.T) {
	runAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	base := DrawHash("comp-1", "u1", runAt, "")

	if DrawHash("comp-2", "u1", runAt, "") == base {
		t.Fatalf("competition must affect the hash")
	}
	if DrawHash("comp-1", "u2", runAt, "") == base {
		t.Fatalf("winner must affect the hash")
	}
	if DrawHash("comp-1", "u1", runAt.Add(time.Nanosecond), "") == base {
		t.Fatalf("timestamp must affect the hash")
	}
	if DrawHash("comp-1", "u1", runAt, "seeded") == base {
		t.Fatalf("seed must affect the hash")
	}
}

func TestDrawHashNormalizesTimezone(t *testing.T) {
	runAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	shifted := runAt.In(time.FixedZone("UTC+3", 3*60*60))
	if DrawHash("comp-1", "u1", runAt, "") != DrawHash("comp-1", "u1", shifted, "") {
		t.Fatalf("equal instants must hash identically regardless of zone")
	}
}
