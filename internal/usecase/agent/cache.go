package agent

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// CacheKey derives the deterministic memoization key for one (file, agent)
// pair. It incorporates the file content hash and the prompt version so
// that edits and prompt changes both invalidate prior entries.
func CacheKey(path, contentHash, agentName, promptVersion string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s|%s", path, contentHash, agentName, promptVersion)))
	return "ar:agent:" + hex.EncodeToString(sum[:])
}
