// Package collect gathers metric and log context around an alert.
//
// Backend failures never abort collection. Each query ends in an Outcome that
// distinguishes data, an empty result, and a failed call; only context
// cancellation is returned as an error.
package collect

import "time"

// Status is the result class of one backend query.
type Status string

const (
	StatusData   Status = "data"
	StatusEmpty  Status = "empty"
	StatusFailed Status = "failed"
)

// Outcome records what happened to a single named query.
type Outcome struct {
	Name   string
	Query  string
	Status Status
	Err    error
}

// Window is the time range searched around an alert.
type Window struct {
	Start time.Time
	End   time.Time
}

// WindowAround returns [at - minutes, at + minutes].
func WindowAround(at time.Time, minutes int) Window {
	d := time.Duration(minutes) * time.Minute
	return Window{Start: at.Add(-d), End: at.Add(d)}
}

// Recorder receives one event per backend query. *telemetry.Metrics satisfies it.
type Recorder interface {
	BackendQuery(backend, status string)
}

type nopRecorder struct{}

func (nopRecorder) BackendQuery(string, string) {}

func orNop(r Recorder) Recorder {
	if r == nil {
		return nopRecorder{}
	}
	return r
}
