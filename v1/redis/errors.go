package redis

import (
	"errors"

	"github.com/redis/go-redis/v9"
)

// ErrContention is returned by Claim when optimistic transactions keep failing
// because other writers modify the same ISRC.
var ErrContention = errors.New("redis: claim contention")

// IsNilError checks if the error is a "key does not exist" error.
func IsNilError(err error) bool {
	return errors.Is(err, redis.Nil)
}
