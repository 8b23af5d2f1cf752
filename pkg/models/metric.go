package models

import "time"

// Sample is one timestamp/value pair of a series.
type Sample struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// Series is one label set and its samples in time order.
type Series struct {
	Labels  map[string]string `json:"labels"`
	Samples []Sample          `json:"samples"`
}

// MetricSeries holds the non-empty result of one named metric query.
type MetricSeries struct {
	Name   string   `json:"name"`
	Query  string   `json:"query"`
	Series []Series `json:"series"`
}
