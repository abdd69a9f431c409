package sources

import (
	"context"
	"errors"
	"time"

	"github.com/StrathCole/btcratios/pkg/logging"
)

const maxBackoff = 5 * time.Second

// fetchWithRetries runs fetch up to retries+1 times. Only network failures are
// retried; malformed bodies are final. Backoff doubles from initialBackoff and
// never outlives ctx.
func fetchWithRetries(
	ctx context.Context,
	retries int,
	initialBackoff time.Duration,
	logger *logging.Logger,
	fetch func(context.Context) (float64, error),
) (float64, error) {
	var lastErr error
	for attempt := 1; attempt <= retries+1; attempt++ {
		value, err := fetch(ctx)
		if err == nil {
			return value, nil
		}

		lastErr = err
		if !errors.Is(err, ErrNetworkFailure) || attempt > retries || ctx.Err() != nil {
			break
		}

		// #nosec G115 -- attempt is always positive
		backoff := initialBackoff * time.Duration(1<<uint(attempt-1))
		if backoff > maxBackoff {
			backoff = maxBackoff
		}

		logger.Debug("Retrying after backoff",
			"attempt", attempt+1,
			"backoff", backoff.String(),
			"error", err,
		)

		timer := time.NewTimer(backoff)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return 0, lastErr
		}
	}

	return 0, lastErr
}
