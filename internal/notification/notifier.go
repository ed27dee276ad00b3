// Package notification delivers assignment messages to crew members.
package notification

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/url"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"
	"go.uber.org/zap"
)

// Notifier sends message to destination. Callers treat failures as
// best-effort and never feed them back into workflow state.
type Notifier interface {
	Notify(ctx context.Context, destination, message string) error
}

// ShoutrrrNotifier delivers through any shoutrrr service URL, e.g. a twilio://
// URL for SMS or generic:// for a webhook.
type ShoutrrrNotifier struct {
	timeout time.Duration
}

// NewShoutrrrNotifier returns a notifier bounding each send by timeout.
func NewShoutrrrNotifier(timeout time.Duration) *ShoutrrrNotifier {
	return &ShoutrrrNotifier{timeout: timeout}
}

func (s *ShoutrrrNotifier) Notify(ctx context.Context, destination, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sender, err := shoutrrr.CreateSender(destination)
	if err != nil {
		return fmt.Errorf("build sender for %s: %w", redactURL(destination), err)
	}
	if s.timeout > 0 {
		sender.Timeout = s.timeout
	}
	sender.SetLogger(log.New(io.Discard, "", 0))

	params := stypes.Params{}
	for _, e := range sender.Send(message, &params) {
		if e != nil {
			return fmt.Errorf("send via %s: %w", redactURL(destination), e)
		}
	}
	return nil
}

// LogNotifier writes messages to the log instead of sending them. It is used
// when notifications are enabled without a delivery URL.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier returns a notifier that only logs.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Notify(_ context.Context, destination, message string) error {
	if destination == "" {
		return errors.New("empty destination")
	}
	l.logger.Info("notification (log only)", zap.String("destination", redactURL(destination)), zap.String("message", message))
	return nil
}

// redactURL keeps scheme and host so logs never carry credentials or tokens.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return "<invalid url>"
	}
	return u.Scheme + "://" + u.Host
}
