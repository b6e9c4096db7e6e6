package determinism

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// GenerateSeed creates a deterministic uint64 seed from a review ID and an
// agent name, so reruns of the same review send identical seeds to the
// model APIs.
// The returned value is guaranteed to be <= math.MaxInt64 to stay
// compatible with providers that take seeds as signed int64.
func GenerateSeed(reviewID, agentName string) uint64 {
	input := fmt.Sprintf("%s|%s", reviewID, agentName)

	hash := sha256.Sum256([]byte(input))
	seed := binary.BigEndian.Uint64(hash[:8])

	// Mask off the high bit so the value fits in int64.
	return seed & 0x7FFFFFFFFFFFFFFF
}
