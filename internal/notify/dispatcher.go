package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/kiranshivaraju/alertsage/pkg/models"
)

// Recorder counts delivery results per channel.
type Recorder interface {
	Notification(channel string, ok bool)
}

type nopRecorder struct{}

func (nopRecorder) Notification(string, bool) {}

// Dispatcher fans a payload out to every configured channel in turn.
type Dispatcher struct {
	channels []Channel
	timeout  time.Duration
	recorder Recorder
}

// NewDispatcher creates a Dispatcher. A zero timeout means DefaultTimeout.
func NewDispatcher(timeout time.Duration, recorder Recorder, channels ...Channel) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Dispatcher{channels: channels, timeout: timeout, recorder: recorder}
}

// Channels returns the number of configured channels.
func (d *Dispatcher) Channels() int { return len(d.channels) }

// Dispatch delivers p to each channel under its own timeout. A failing channel
// never prevents delivery to the others. With no channels configured the
// plain-text rendering is logged instead.
func (d *Dispatcher) Dispatch(ctx context.Context, p Payload) models.NotificationOutcome {
	if len(d.channels) == 0 {
		slog.Warn("no notification channels configured, logging analysis", "alert", p.AlertName)
		slog.Info("analysis result", "alert", p.AlertName, "text", FormatText(p.Analysis))
		return models.NotificationOutcome{Channels: []models.ChannelOutcome{}}
	}

	outcome := models.NotificationOutcome{Channels: make([]models.ChannelOutcome, 0, len(d.channels))}
	for _, ch := range d.channels {
		res := models.ChannelOutcome{Channel: ch.Name(), Success: true}
		if err := d.send(ctx, ch, p); err != nil {
			res.Success = false
			res.Error = err.Error()
			slog.Error("notification failed", "channel", ch.Name(), "alert", p.AlertName, "error", err)
		} else {
			slog.Info("notification sent", "channel", ch.Name(), "alert", p.AlertName)
		}
		d.recorder.Notification(ch.Name(), res.Success)
		outcome.Channels = append(outcome.Channels, res)
	}
	return outcome
}

func (d *Dispatcher) send(ctx context.Context, ch Channel, p Payload) (err error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in notification channel", "channel", ch.Name(), "error", r)
			err = ErrDeliveryFailed
		}
	}()
	return ch.Send(ctx, p)
}
