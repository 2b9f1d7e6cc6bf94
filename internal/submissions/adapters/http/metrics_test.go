package http

import (
	"context"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestInitializeMetrics(t *testing.T) {
	t.Run("initializes all metric instruments successfully", func(t *testing.T) {
		mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewManualReader()))

		metrics, err := NewMetrics(mp.Meter("test"))
		if err != nil {
			t.Fatalf("NewMetrics() failed: %v", err)
		}

		if metrics.requestDuration == nil {
			t.Error("requestDuration is nil")
		}
		if metrics.requestsTotal == nil {
			t.Error("requestsTotal is nil")
		}
		if metrics.requestsInFlight == nil {
			t.Error("requestsInFlight is nil")
		}
	})
}

func TestRecordHTTPRequest(t *testing.T) {
	t.Run("records count and duration per method, route and status", func(t *testing.T) {
		reader := sdkmetric.NewManualReader()
		mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

		metrics, err := NewMetrics(mp.Meter("test"))
		if err != nil {
			t.Fatalf("NewMetrics() failed: %v", err)
		}

		ctx := context.Background()
		metrics.RecordRequest(ctx, "POST", "/submit", 200, 0.05)
		metrics.RecordRequest(ctx, "POST", "/submit", 422, 0.01)

		var rm metricdata.ResourceMetrics
		if err := reader.Collect(ctx, &rm); err != nil {
			t.Fatalf("Failed to collect metrics: %v", err)
		}

		counts := map[string]int{}
		for _, sm := range rm.ScopeMetrics {
			for _, m := range sm.Metrics {
				switch data := m.Data.(type) {
				case metricdata.Sum[int64]:
					counts[m.Name] = len(data.DataPoints)
				case metricdata.Histogram[float64]:
					counts[m.Name] = len(data.DataPoints)
				}
			}
		}

		if counts["http_requests_total"] != 2 {
			t.Errorf("expected 2 counter series by status, got %d", counts["http_requests_total"])
		}
		if counts["http_request_duration_seconds"] != 1 {
			t.Errorf("expected 1 histogram series, got %d", counts["http_request_duration_seconds"])
		}
	})
}
