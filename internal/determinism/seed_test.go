package determinism

import (
	"math"
	"testing"
)

func TestGenerateSeed_Deterministic(t *testing.T) {
	a := GenerateSeed("rev-123", "analyzer")
	b := GenerateSeed("rev-123", "analyzer")
	if a != b {
		t.Errorf("same inputs produced different seeds: %d vs %d", a, b)
	}
}

func TestGenerateSeed_VariesByInput(t *testing.T) {
	base := GenerateSeed("rev-123", "analyzer")
	if base == GenerateSeed("rev-124", "analyzer") {
		t.Error("different review IDs produced the same seed")
	}
	if base == GenerateSeed("rev-123", "security") {
		t.Error("different agents produced the same seed")
	}
}

func TestGenerateSeed_DelimiterPreventsCollisions(t *testing.T) {
	if GenerateSeed("ab", "c") == GenerateSeed("a", "bc") {
		t.Error("concatenation collision: delimiter not effective")
	}
}

func TestGenerateSeed_FitsInt64(t *testing.T) {
	for _, id := range []string{"", "rev-1", "rev-2", "a-very-long-review-identifier"} {
		if seed := GenerateSeed(id, "analyzer"); seed > math.MaxInt64 {
			t.Errorf("seed %d exceeds MaxInt64", seed)
		}
	}
}
