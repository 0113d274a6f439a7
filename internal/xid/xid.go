package xid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

// New returns an identifier with a millisecond-precision time prefix derived
// from t and a random suffix. The time prefix keeps lexical descending order
// most-recent-first for invoice lists; the suffix keeps ids minted within the
// same millisecond distinct, so union-by-id merges never collapse two of them.
func New(t time.Time) string {
	millis := strconv.FormatInt(t.UnixMilli(), 10)
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%s-%d", millis, t.UnixNano())
	}
	return millis + "-" + hex.EncodeToString(buf)
}
