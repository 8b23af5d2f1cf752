package promql

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func names(qs []NamedQuery) []string {
	out := make([]string, len(qs))
	for i, q := range qs {
		out[i] = q.Name
	}
	return out
}

func find(qs []NamedQuery, name string) (string, bool) {
	for _, q := range qs {
		if q.Name == name {
			return q.Query, true
		}
	}
	return "", false
}

func TestBuild_HighCPUAlert(t *testing.T) {
	qs := QueryBuilder{}.Build(map[string]string{
		"alertname": "HighCPU",
		"instance":  "host1:9100",
		"component": "cpu",
	})

	assert.Equal(t, []string{
		"cpu_usage",
		"cpu_by_mode",
		"instance_up",
		"load_average",
		"network_receive_rate",
		"network_transmit_rate",
		"disk_read_rate",
		"disk_write_rate",
	}, names(qs))

	cpu, _ := find(qs, "cpu_usage")
	assert.Equal(t,
		`100 - (avg by(instance) (irate(node_cpu_seconds_total{mode="idle",instance="host1:9100"}[5m])) * 100)`, cpu)

	up, _ := find(qs, "instance_up")
	assert.Equal(t, `up{instance="host1:9100"}`, up)
}

func TestBuild(t *testing.T) {
	b := QueryBuilder{}

	tests := []struct {
		name     string
		labels   map[string]string
		query    string
		expected string
	}{
		{
			name:     "cpu without instance aggregates all hosts",
			labels:   map[string]string{"alertname": "CPUThrottling"},
			query:    "cpu_usage",
			expected: `100 - (avg by(instance) (irate(node_cpu_seconds_total{mode="idle"}[5m])) * 100)`,
		},
		{
			name:     "memory by alertname substring is case-insensitive",
			labels:   map[string]string{"alertname": "HighMemoryUsage", "instance": "db:9100"},
			query:    "memory_usage",
			expected: `(1 - (node_memory_MemAvailable_bytes{instance="db:9100"} / node_memory_MemTotal_bytes{instance="db:9100"})) * 100`,
		},
		{
			name:     "memory available",
			labels:   map[string]string{"component": "memory", "instance": "db:9100"},
			query:    "memory_available",
			expected: `node_memory_MemAvailable_bytes{instance="db:9100"}`,
		},
		{
			name:     "disk usage excludes tmpfs",
			labels:   map[string]string{"alertname": "DiskFull", "instance": "fs:9100"},
			query:    "disk_usage",
			expected: `(1 - (node_filesystem_avail_bytes{instance="fs:9100",fstype!="tmpfs"} / node_filesystem_size_bytes{instance="fs:9100",fstype!="tmpfs"})) * 100`,
		},
		{
			name:     "job takes precedence for liveness",
			labels:   map[string]string{"job": "node", "instance": "a:9100"},
			query:    "instance_up",
			expected: `up{job="node"}`,
		},
		{
			name:     "network receive rate",
			labels:   map[string]string{"instance": "a:9100"},
			query:    "network_receive_rate",
			expected: `irate(node_network_receive_bytes_total{instance="a:9100"}[5m])`,
		},
		{
			name:     "disk write rate",
			labels:   map[string]string{"instance": "a:9100"},
			query:    "disk_write_rate",
			expected: `irate(node_disk_written_bytes_total{instance="a:9100"}[5m])`,
		},
		{
			name:     "quotes in label values are escaped",
			labels:   map[string]string{"job": `we"ird`},
			query:    "instance_up",
			expected: `up{job="we\"ird"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := find(b.Build(tt.labels), tt.query)
			assert.True(t, ok, "query %s not generated", tt.query)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestBuild_NoLabels(t *testing.T) {
	assert.Empty(t, QueryBuilder{}.Build(map[string]string{"alertname": "Watchdog"}))
}

func TestBuild_JobOnlyHasNoHostQueries(t *testing.T) {
	qs := QueryBuilder{}.Build(map[string]string{"job": "api"})
	assert.Equal(t, []string{"instance_up"}, names(qs))
}

func TestBuild_Deterministic(t *testing.T) {
	labels := map[string]string{"alertname": "HighCPUAndMemoryAndDisk", "instance": "h:9100", "job": "node"}
	b := QueryBuilder{}
	assert.Equal(t, b.Build(labels), b.Build(labels))
}
