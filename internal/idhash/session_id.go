package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/mr-tron/base58"
)

// ComputeSessionID computes a deterministic stream session ID using SHA256.
// Formula: SHA256(endpoint|topic|started_at_unix_nano)
// Returns hex-encoded hash (64 characters).
func ComputeSessionID(endpoint, topic string, startedAt time.Time) string {
	data := fmt.Sprintf("%s|%s|%d", endpoint, topic, startedAt.UnixNano())
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ShortSessionID computes the same hash as ComputeSessionID but returns a
// base58 encoding of the first 16 bytes, for log lines and metric labels.
func ShortSessionID(endpoint, topic string, startedAt time.Time) string {
	data := fmt.Sprintf("%s|%s|%d", endpoint, topic, startedAt.UnixNano())
	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:16])
}

// ComputeGroupID computes a deterministic ID for a series group within a
// session. Formula: SHA256(session_id|group)
func ComputeGroupID(sessionID, group string) string {
	data := fmt.Sprintf("%s|%s", sessionID, group)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
