package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/AntoineSierzputowski/carmen"
)

const notifyMaxRetries = 3

// Dispatcher fans a message out to every configured notifier, retrying each
// with exponential backoff. Delivery is best-effort: failures are logged and
// reported but callers treat them as non-fatal.
type Dispatcher struct {
	notifiers []carmen.Notifier
}

func NewDispatcher(notifiers ...carmen.Notifier) *Dispatcher {
	return &Dispatcher{notifiers: notifiers}
}

// Empty reports whether no notifiers are configured.
func (d *Dispatcher) Empty() bool {
	return len(d.notifiers) == 0
}

// Dispatch delivers subject/message to every notifier. The joined error is
// informational; a partial delivery still counts as delivered.
func (d *Dispatcher) Dispatch(ctx context.Context, subject, message string) error {
	var errs []error
	for _, n := range d.notifiers {
		bo := backoff.NewExponentialBackOff()
		bo.MaxElapsedTime = 10 * time.Second

		err := backoff.Retry(func() error {
			return n.Notify(ctx, subject, message)
		}, backoff.WithContext(backoff.WithMaxRetries(bo, notifyMaxRetries), ctx))

		if err != nil {
			slog.Error("NOTIFY: Delivery failed after retries", "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
