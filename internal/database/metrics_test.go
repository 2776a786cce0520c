package database

import (
	"context"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestRecordQuery(t *testing.T) {
	t.Run("records query duration with operation label", func(t *testing.T) {
		reader := sdkmetric.NewManualReader()
		mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
		meter := mp.Meter("test")

		metrics, err := NewMetrics(meter)
		if err != nil {
			t.Fatalf("NewMetrics() failed: %v", err)
		}

		ctx := context.Background()

		metrics.RecordQuery(ctx, "upsert_cart_item", 0.1)
		metrics.RecordQuery(ctx, "get_order_by_id", 0.05)

		var rm metricdata.ResourceMetrics
		if err := reader.Collect(ctx, &rm); err != nil {
			t.Fatalf("failed to collect metrics: %v", err)
		}

		foundDuration := false
		foundTotal := false
		for _, sm := range rm.ScopeMetrics {
			for _, m := range sm.Metrics {
				switch m.Name {
				case "db_query_duration_seconds":
					foundDuration = true
					histogram, ok := m.Data.(metricdata.Histogram[float64])
					if !ok {
						t.Fatal("expected Histogram[float64] data type")
					}
					if len(histogram.DataPoints) != 2 {
						t.Errorf("expected 2 data points, got %d", len(histogram.DataPoints))
					}
				case "db_queries_total":
					foundTotal = true
					sum, ok := m.Data.(metricdata.Sum[int64])
					if !ok {
						t.Fatal("expected Sum[int64] data type")
					}
					var total int64
					for _, dp := range sum.DataPoints {
						total += dp.Value
					}
					if total != 2 {
						t.Errorf("expected total of 2 queries, got %d", total)
					}
				}
			}
		}

		if !foundDuration {
			t.Error("db_query_duration_seconds metric not found")
		}
		if !foundTotal {
			t.Error("db_queries_total metric not found")
		}
	})
}
