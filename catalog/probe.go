package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
)

// WaitReady blocks until the listing endpoint answers or maxWait has passed.
// Only the readiness probe is retried; page requests made by a feed never are.
func (c *Client) WaitReady(ctx context.Context, maxWait time.Duration) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.Multiplier = 1.5
	b.MaxElapsedTime = maxWait

	attempt := 0
	operation := func() error {
		attempt++
		_, err := c.ListSofas(ctx, 1)
		if err == nil {
			return nil
		}

		// The server answered, so it is up even if it did not like the request
		var status *StatusError
		if errors.As(err, &status) && status.Code < 500 {
			return nil
		}
		if errors.Is(err, ErrMalformedResponse) || ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		log.WithFields(log.Fields{
			"attempt": attempt,
			"wait":    wait,
			"error":   err,
		}).Warn("Catalogue not reachable yet")
	}

	return backoff.RetryNotify(operation, backoff.WithContext(b, ctx), notify)
}
