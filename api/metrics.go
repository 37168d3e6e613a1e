package api

import (
	"sync"
	"time"
)

// RouteMetrics aggregates request counts and latency for one route+method
type RouteMetrics struct {
	Route       string        `json:"route"`
	Method      string        `json:"method"`
	Count       int64         `json:"count"`
	ErrorCount  int64         `json:"errorCount"`
	TotalTime   time.Duration `json:"-"`
	MaxTime     time.Duration `json:"-"`
	AvgMillis   float64       `json:"avgMillis"`
	MaxMillis   float64       `json:"maxMillis"`
	LastRequest time.Time     `json:"lastRequest"`
}

// MetricsCollector keeps in-memory per-route metrics
type MetricsCollector struct {
	mu      sync.RWMutex
	routes  map[string]*RouteMetrics
	started time.Time
}

var (
	metricsOnce sync.Once
	collector   *MetricsCollector
)

// GetMetrics returns the process-wide metrics collector
func GetMetrics() *MetricsCollector {
	metricsOnce.Do(func() {
		collector = &MetricsCollector{
			routes:  make(map[string]*RouteMetrics),
			started: time.Now(),
		}
	})
	return collector
}

// Record adds one observation for a route
func (mc *MetricsCollector) Record(method, route string, status int, duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	key := method + " " + route
	rm, ok := mc.routes[key]
	if !ok {
		rm = &RouteMetrics{Route: route, Method: method}
		mc.routes[key] = rm
	}
	rm.Count++
	if status >= 400 {
		rm.ErrorCount++
	}
	rm.TotalTime += duration
	if duration > rm.MaxTime {
		rm.MaxTime = duration
	}
	rm.AvgMillis = float64(rm.TotalTime.Milliseconds()) / float64(rm.Count)
	rm.MaxMillis = float64(rm.MaxTime.Milliseconds())
	rm.LastRequest = time.Now()
}

// Snapshot returns a copy of the current metrics for JSON output
func (mc *MetricsCollector) Snapshot() map[string]interface{} {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	routes := make([]RouteMetrics, 0, len(mc.routes))
	for _, rm := range mc.routes {
		routes = append(routes, *rm)
	}
	return map[string]interface{}{
		"uptimeSeconds": time.Since(mc.started).Seconds(),
		"routes":        routes,
	}
}
