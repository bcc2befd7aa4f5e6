// path: internal/platform/poll.go
package platform

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrNotReady is returned by a ReadyCheck when the container/media handle
// has not finished processing yet and polling should continue.
var ErrNotReady = errors.New("platform: media not ready")

// ReadyCheck probes a platform-specific container/media handle (the
// Instagram/Mastodon/Threads "create container, poll, then publish"
// pattern) and returns ErrNotReady while processing is still underway.
type ReadyCheck func(ctx context.Context) error

// PollUntilReady polls check every ~2-3s up to a 60s ceiling, shared by
// every adapter that needs the container-readiness pattern instead of
// three copy-pasted poll loops.
func PollUntilReady(ctx context.Context, check ReadyCheck) error {
	b := backoff.NewConstantBackOff(3 * time.Second)
	maxTries := backoff.WithMaxRetries(b, 20) // ~20 * 3s = 60s ceiling
	tries := backoff.WithContext(maxTries, ctx)

	return backoff.Retry(func() error {
		err := check(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrNotReady) {
			return err // retryable
		}
		return backoff.Permanent(err)
	}, tries)
}
