package feed

import (
	"context"
	"time"
)

const DefaultDebounce = 1000 * time.Millisecond

// Debounce forwards a value from in only after delay passed without a newer
// one. The output closes when in closes (flushing the pending value) or ctx
// is done.
func Debounce[T any](ctx context.Context, in <-chan T, delay time.Duration) <-chan T {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	out := make(chan T)

	go func() {
		defer close(out)

		var (
			pending T
			waiting bool
			timer   = time.NewTimer(delay)
		)
		if !timer.Stop() {
			<-timer.C
		}
		defer timer.Stop()

		emit := func(v T) bool {
			select {
			case out <- v:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case v, ok := <-in:
				if !ok {
					if waiting {
						emit(pending)
					}
					return
				}
				pending, waiting = v, true
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(delay)
			case <-timer.C:
				if waiting {
					waiting = false
					if !emit(pending) {
						return
					}
				}
			}
		}
	}()

	return out
}
