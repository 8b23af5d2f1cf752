// Package logql synthesizes LogQL queries from alert labels.
package logql

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	errorWords     = []string{"error", "exception", "fatal", "critical"}
	jobErrorWords  = []string{"error", "exception", "fatal"}
	containerWords = []string{"error", "exception", "failed", "fatal"}
	warningWords   = []string{"warn", "warning"}
)

// NamedQuery is a LogQL expression tagged with its semantic intent.
type NamedQuery struct {
	Name  string
	Query string
}

// QueryBuilder constructs safe LogQL query strings.
// All methods are pure functions with no side effects.
// Zero value is ready to use.
type QueryBuilder struct{}

// Build returns the log queries relevant to the given alert labels, in a stable order.
// When no label narrows the search, it falls back to error and warning scans across all jobs.
func (b QueryBuilder) Build(labels map[string]string) []NamedQuery {
	service := labels["service"]
	job := labels["job"]
	instance := labels["instance"]

	var out []NamedQuery
	add := func(name string, parts ...string) {
		out = append(out, NamedQuery{Name: name, Query: strings.Join(parts, " ")})
	}

	if service != "" {
		sel := b.buildSelector("service", "=", service)
		add("service_logs", sel)
		add("service_errors", sel, b.buildLineFilter(errorWords))
		add("service_warnings", sel, b.buildLineFilter(warningWords))
	}

	if job != "" {
		sel := b.buildSelector("job", "=", job)
		add("job_logs", sel)
		add("job_errors", sel, b.buildLineFilter(jobErrorWords))
	}

	// Docker container names embed the service name.
	if service != "" {
		sel := b.buildSelector("container", "=~", b.contains(service))
		add("container_logs", sel)
		add("container_errors", sel, b.buildLineFilter(containerWords))
	}

	if instance != "" {
		host, _, _ := strings.Cut(instance, ":")
		add("instance_logs", b.buildSelector("instance", "=~", b.contains(host)))
	}

	if len(out) == 0 {
		all := b.buildSelector("job", "=~", ".+")
		add("all_errors", all, b.buildLineFilter(errorWords))
		add("all_warnings", all, b.buildLineFilter(warningWords))
	}

	return out
}

func (b QueryBuilder) buildSelector(label, op, value string) string {
	return fmt.Sprintf(`{%s%s%s}`, label, op, strconv.Quote(value))
}

// buildLineFilter matches any of the words case-insensitively.
func (b QueryBuilder) buildLineFilter(words []string) string {
	return fmt.Sprintf(`|~ "(?i)(%s)"`, strings.Join(words, "|"))
}

// contains returns a regex matching any value that embeds s literally.
func (b QueryBuilder) contains(s string) string {
	return ".*" + regexp.QuoteMeta(s) + ".*"
}
