package watcher

import (
	"context"
	"time"

	"github.com/emersion/go-imap-idle"

	"ordertracker/internal/mail"
)

// waitForPush blocks in IMAP IDLE until either a server push notification
// arrives, the timeout elapses (not an error, §4.1 step 6), or ctx is
// cancelled.
func waitForPush(ctx context.Context, c *mail.Client, timeout time.Duration) (timedOut bool, err error) {
	idleClient := idle.NewClient(c.Raw())
	updates := c.Updates()

	stop := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- idleClient.IdleWithFallback(stop, timeout)
	}()

	select {
	case <-ctx.Done():
		close(stop)
		<-done
		return false, ctx.Err()
	case <-updates:
		close(stop)
		<-done
		return false, nil
	case err := <-done:
		return true, err
	}
}
