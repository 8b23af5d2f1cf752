package models

// ChannelOutcome records whether delivery to one channel succeeded.
type ChannelOutcome struct {
	Channel string `json:"channel"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// NotificationOutcome aggregates per-channel delivery results for one analysis.
type NotificationOutcome struct {
	Channels []ChannelOutcome `json:"channels"`
}

// Delivered reports true when any channel succeeded or no channel was configured.
func (o NotificationOutcome) Delivered() bool {
	if len(o.Channels) == 0 {
		return true
	}
	for _, c := range o.Channels {
		if c.Success {
			return true
		}
	}
	return false
}
