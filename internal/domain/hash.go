package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// DrawHash computes the tamper-evident commitment over a draw's key facts.
// Anyone holding the competition ID, winner ID, run timestamp, and seed can
// recompute it to verify a posted result.
func DrawHash(competitionID, winnerID string, runAt time.Time, seed string) string {
	h := sha256.New()
	h.Write([]byte(competitionID))
	h.Write([]byte("|"))
	h.Write([]byte(winnerID))
	h.Write([]byte("|"))
	h.Write([]byte(runAt.UTC().Format(time.RFC3339Nano)))
	if seed != "" {
		h.Write([]byte("|"))
		h.Write([]byte(seed))
	}
	return hex.EncodeToString(h.Sum(nil))
}
