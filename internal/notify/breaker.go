package notify

import (
	"context"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
)

// BreakerSender stops calling a failing email provider for a while so a
// sweep over many candidates does not wait on one timeout per alert.
type BreakerSender struct {
	next Sender
	cb   *gobreaker.CircuitBreaker[struct{}]
}

// NewBreakerSender wraps next. The circuit opens after five consecutive
// failures and probes again after one minute.
func NewBreakerSender(name string, next Sender) *BreakerSender {
	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    5 * time.Minute,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("email circuit breaker state change")
		},
	})
	return &BreakerSender{next: next, cb: cb}
}

// State returns the current breaker state.
func (b *BreakerSender) State() gobreaker.State {
	return b.cb.State()
}

func (b *BreakerSender) SendEmail(ctx context.Context, to, subject, body string) error {
	_, err := b.cb.Execute(func() (struct{}, error) {
		return struct{}{}, b.next.SendEmail(ctx, to, subject, body)
	})
	return err
}
