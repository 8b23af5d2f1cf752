// Package promql synthesizes PromQL queries from alert labels.
package promql

import (
	"fmt"
	"strconv"
	"strings"
)

// NamedQuery is a PromQL expression tagged with its semantic intent.
type NamedQuery struct {
	Name  string
	Query string
}

// QueryBuilder derives metric queries from alert labels.
// All methods are pure functions with no side effects.
// Zero value is ready to use.
type QueryBuilder struct{}

// Build returns the queries relevant to the given alert labels, in a stable order.
func (b QueryBuilder) Build(labels map[string]string) []NamedQuery {
	instance := labels["instance"]
	job := labels["job"]

	var out []NamedQuery
	add := func(name, query string) {
		out = append(out, NamedQuery{Name: name, Query: query})
	}

	if b.concerns(labels, "cpu") {
		if instance != "" {
			add("cpu_usage", fmt.Sprintf(
				`100 - (avg by(instance) (irate(node_cpu_seconds_total{mode="idle",instance=%s}[5m])) * 100)`,
				quote(instance)))
			add("cpu_by_mode", fmt.Sprintf(`irate(node_cpu_seconds_total%s[5m])`, b.instanceSelector(instance)))
		} else {
			add("cpu_usage", `100 - (avg by(instance) (irate(node_cpu_seconds_total{mode="idle"}[5m])) * 100)`)
		}
	}

	if b.concerns(labels, "memory") {
		if instance != "" {
			sel := b.instanceSelector(instance)
			add("memory_usage", fmt.Sprintf(
				`(1 - (node_memory_MemAvailable_bytes%s / node_memory_MemTotal_bytes%s)) * 100`, sel, sel))
			add("memory_available", "node_memory_MemAvailable_bytes"+sel)
		} else {
			add("memory_usage", `(1 - (node_memory_MemAvailable_bytes / node_memory_MemTotal_bytes)) * 100`)
		}
	}

	if b.concerns(labels, "disk") {
		fs := `{fstype!="tmpfs"}`
		if instance != "" {
			fs = fmt.Sprintf(`{instance=%s,fstype!="tmpfs"}`, quote(instance))
		}
		add("disk_usage", fmt.Sprintf(
			`(1 - (node_filesystem_avail_bytes%s / node_filesystem_size_bytes%s)) * 100`, fs, fs))
	}

	// Liveness doubles as the fallback when nothing above matched.
	switch {
	case job != "":
		add("instance_up", fmt.Sprintf(`up{job=%s}`, quote(job)))
	case instance != "":
		add("instance_up", "up"+b.instanceSelector(instance))
	}

	if instance != "" {
		sel := b.instanceSelector(instance)
		add("load_average", "node_load1"+sel)
		add("network_receive_rate", fmt.Sprintf(`irate(node_network_receive_bytes_total%s[5m])`, sel))
		add("network_transmit_rate", fmt.Sprintf(`irate(node_network_transmit_bytes_total%s[5m])`, sel))
		add("disk_read_rate", fmt.Sprintf(`irate(node_disk_read_bytes_total%s[5m])`, sel))
		add("disk_write_rate", fmt.Sprintf(`irate(node_disk_written_bytes_total%s[5m])`, sel))
	}

	return out
}

// concerns reports whether the alert targets the given resource, either through
// the component label or a case-insensitive match on the alert name.
func (b QueryBuilder) concerns(labels map[string]string, resource string) bool {
	if strings.EqualFold(labels["component"], resource) {
		return true
	}
	return strings.Contains(strings.ToLower(labels["alertname"]), resource)
}

func (b QueryBuilder) instanceSelector(instance string) string {
	return fmt.Sprintf(`{instance=%s}`, quote(instance))
}

// quote renders a label value as a double-quoted PromQL string literal.
func quote(v string) string {
	return strconv.Quote(v)
}
