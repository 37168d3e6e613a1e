package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetricsCollectorRecord(t *testing.T) {
	mc := &MetricsCollector{routes: map[string]*RouteMetrics{}, started: time.Now()}

	mc.Record("GET", "/api/v1/ambulances", 200, 10*time.Millisecond)
	mc.Record("GET", "/api/v1/ambulances", 500, 30*time.Millisecond)
	mc.Record("POST", "/api/v1/incidents", 201, 5*time.Millisecond)

	snapshot := mc.Snapshot()
	routes := snapshot["routes"].([]RouteMetrics)
	assert.Len(t, routes, 2)

	var get RouteMetrics
	for _, rm := range routes {
		if rm.Method == "GET" {
			get = rm
		}
	}
	assert.Equal(t, int64(2), get.Count)
	assert.Equal(t, int64(1), get.ErrorCount)
	assert.Equal(t, float64(30), get.MaxMillis)
	assert.Equal(t, float64(20), get.AvgMillis)
}

func TestGetMetricsIsSingleton(t *testing.T) {
	assert.Same(t, GetMetrics(), GetMetrics())
}
