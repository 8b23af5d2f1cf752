package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// QueryKey identifies a ranged backend query. Equal inputs always map to the same key.
func QueryKey(backend, query string, start, end time.Time, extra ...string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%d\x00%d", query, start.UnixNano(), end.UnixNano())
	if len(extra) > 0 {
		h.Write([]byte("\x00" + strings.Join(extra, "\x00")))
	}
	return fmt.Sprintf("%s:query:%s", backend, hex.EncodeToString(h.Sum(nil)))
}

func RateLimitKey(client string) string {
	return fmt.Sprintf("ratelimit:%s", client)
}
