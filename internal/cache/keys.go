package cache

import (
	"fmt"

	"github.com/google/uuid"
)

// TreeKey is the cache key of the hierarchy tree visible to a client scope.
// A nil clientID is the unscoped tree.
func TreeKey(clientID *uuid.UUID) string {
	if clientID == nil {
		return "tree:all"
	}
	return fmt.Sprintf("tree:%s", *clientID)
}

func RateLimitKey(keyPrefix string) string {
	return fmt.Sprintf("ratelimit:%s", keyPrefix)
}
