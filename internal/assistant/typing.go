package assistant

import (
	"context"
	"time"
)

// defaultHeartbeat matches the transport's typing-indicator decay.
const defaultHeartbeat = 3 * time.Second

// Notifier signals the user that the assistant is working. Implemented by
// the transport layer; a nil Notifier disables indication entirely.
type Notifier interface {
	Typing(ctx context.Context, userID int64) error
}

// withTyping runs fn while a background goroutine refreshes the typing
// indicator. The goroutine is guaranteed to be stopped and drained before
// withTyping returns, on every exit path including panics in fn.
func (a *Assistant) withTyping(ctx context.Context, userID int64, fn func(ctx context.Context)) {
	if a.notifier == nil {
		fn(ctx)
		return
	}

	heartbeatCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(a.heartbeat)
		defer ticker.Stop()
		for {
			if err := a.notifier.Typing(heartbeatCtx, userID); err != nil && heartbeatCtx.Err() == nil {
				a.logger.Warn("typing indication failed", "user_id", userID, "error", err)
			}
			select {
			case <-heartbeatCtx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	defer func() {
		cancel()
		<-done
	}()
	fn(ctx)
}
