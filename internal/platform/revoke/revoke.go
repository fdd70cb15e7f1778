// Package revoke tracks refresh tokens that were rotated or logged out so
// they cannot be replayed before they expire.
package revoke

import (
	"context"
	"time"
)

type Blacklist interface {
	Add(ctx context.Context, token string, exp time.Time) error
	Contains(ctx context.Context, token string) (bool, error)
}
