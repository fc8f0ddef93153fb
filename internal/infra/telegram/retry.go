// internal/infra/telegram/retry.go
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	domainTelegram "diet_follow_up_bot/internal/domain/telegram"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"gopkg.in/telebot.v3"
)

const (
	defaultMaxAttempts  = 3
	defaultInitialDelay = 2 * time.Second

	breakerMaxFailures = 5
	breakerResetAfter  = 60 * time.Second
)

// ErrDeliveryFailed reports that a message could not be delivered after the
// bounded retry attempts were exhausted.
var ErrDeliveryFailed = fmt.Errorf("message delivery failed")

// RetryingClient decorates a Client with bounded exponential-backoff retry
// for transient failures (flood limits, timeouts, network errors) and a
// circuit breaker so a dead Telegram API fails fast instead of queueing up
// blocked senders. Non-transient API errors are returned immediately.
type RetryingClient struct {
	inner   domainTelegram.Client
	breaker *gobreaker.CircuitBreaker
	logger  *logrus.Entry

	maxAttempts  int
	initialDelay time.Duration
	sleep        func(time.Duration) // replaced in tests
}

func NewRetryingClient(inner domainTelegram.Client, logger *logrus.Entry) *RetryingClient {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "telegram-send",
		MaxRequests: 1,
		Timeout:     breakerResetAfter,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerMaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})
	return &RetryingClient{
		inner:        inner,
		breaker:      breaker,
		logger:       logger,
		maxAttempts:  defaultMaxAttempts,
		initialDelay: defaultInitialDelay,
		sleep:        time.Sleep,
	}
}

// SendMessage delivers the message with at most maxAttempts tries. The
// delay doubles between attempts, and a flood limit's retry-after hint is
// honored when it exceeds the current delay.
func (r *RetryingClient) SendMessage(recipientChatID int64, text string, options *telebot.SendOptions) error {
	delay := r.initialDelay
	var lastErr error

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		_, err := r.breaker.Execute(func() (interface{}, error) {
			return nil, r.inner.SendMessage(recipientChatID, text, options)
		})
		if err == nil {
			return nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%w: circuit open: %v", ErrDeliveryFailed, err)
		}
		if !isTransient(err) {
			return err
		}
		lastErr = err

		if wait, ok := floodRetryAfter(err); ok && wait > delay {
			delay = wait
		}
		if attempt < r.maxAttempts {
			r.logger.WithError(err).WithFields(logrus.Fields{
				"recipient":  recipientChatID,
				"attempt":    attempt,
				"next_delay": delay,
			}).Warn("Transient send failure, retrying")
			r.sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%w: %d attempts to chat %d: %v", ErrDeliveryFailed, r.maxAttempts, recipientChatID, lastErr)
}

// isTransient reports whether the error is worth retrying: flood limits,
// network timeouts, and cancelled deadlines. Telegram API rejections (bad
// chat ID, blocked bot) are permanent.
func isTransient(err error) bool {
	var flood telebot.FloodError
	if errors.As(err, &flood) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

func floodRetryAfter(err error) (time.Duration, bool) {
	var flood telebot.FloodError
	if errors.As(err, &flood) && flood.RetryAfter > 0 {
		return time.Duration(flood.RetryAfter) * time.Second, true
	}
	return 0, false
}
