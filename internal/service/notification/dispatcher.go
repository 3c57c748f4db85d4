package notification

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/campusvoice/contenttrust/internal/models"
)

// Provider delivers a notification to an external channel (mail, push, a
// campus messaging bridge). Implementations must be safe for concurrent use.
type Provider interface {
	Deliver(ctx context.Context, n *models.Notification) error
}

const dispatchAttempts = 3

// Dispatcher wraps a Provider with per-attempt timeouts, bounded retries,
// and a circuit breaker so a dead provider cannot stall transitions.
type Dispatcher struct {
	log      *zap.Logger
	provider Provider
	breaker  *gobreaker.CircuitBreaker
	timeout  time.Duration
}

// NewDispatcher creates a dispatcher around provider.
func NewDispatcher(log *zap.Logger, provider Provider, timeout time.Duration) *Dispatcher {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "notification-provider",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("notification breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return &Dispatcher{log: log, provider: provider, breaker: breaker, timeout: timeout}
}

// LogProvider is the default provider: it records deliveries in the log
// only. Deployments plug a real channel in behind the Provider interface.
type LogProvider struct {
	log *zap.Logger
}

// NewLogProvider creates a log-only provider.
func NewLogProvider(log *zap.Logger) *LogProvider {
	return &LogProvider{log: log}
}

func (p *LogProvider) Deliver(_ context.Context, n *models.Notification) error {
	p.log.Info("notification delivered",
		zap.String("notification_id", n.ID),
		zap.String("type", string(n.Type)),
	)
	return nil
}

// Dispatch delivers n through the provider, retrying transient failures.
func (d *Dispatcher) Dispatch(ctx context.Context, n *models.Notification) error {
	_, err := d.breaker.Execute(func() (interface{}, error) {
		attempt := func() error {
			attemptCtx, cancel := context.WithTimeout(ctx, d.timeout)
			defer cancel()
			return d.provider.Deliver(attemptCtx, n)
		}
		bo := backoff.NewExponentialBackOff()
		bo.InitialInterval = 100 * time.Millisecond
		bo.MaxInterval = 2 * time.Second
		policy := backoff.WithContext(backoff.WithMaxRetries(bo, dispatchAttempts-1), ctx)
		return nil, backoff.Retry(attempt, policy)
	})
	return err
}
