package health

import (
	"context"
	"fmt"
	"net/http/httptest"
	"testing"
)

// BenchmarkChecker_Check measures single check performance.
func BenchmarkChecker_Check(b *testing.B) {
	checker := NewCheckerFunc("bench", func(ctx context.Context) Result {
		return Healthy("ok")
	})
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = checker.Check(ctx)
	}
}

// BenchmarkAggregator_CheckAll measures scaling with checker count.
func BenchmarkAggregator_CheckAll(b *testing.B) {
	sizes := []int{1, 5, 20}

	for _, size := range sizes {
		b.Run(fmt.Sprintf("checkers=%d", size), func(b *testing.B) {
			agg := NewAggregator(AggregatorConfig{})
			for i := 0; i < size; i++ {
				agg.Register(NewCheckerFunc(fmt.Sprintf("check%d", i), func(ctx context.Context) Result {
					return Healthy("ok")
				}))
			}
			ctx := context.Background()

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = agg.CheckAll(ctx)
			}
		})
	}
}

// BenchmarkAggregator_OverallStatus measures status computation.
func BenchmarkAggregator_OverallStatus(b *testing.B) {
	agg := NewAggregator(AggregatorConfig{})
	results := map[string]Result{
		"check1": Healthy("ok"),
		"check2": Healthy("ok"),
		"check3": Degraded("slow"),
		"check4": Healthy("ok"),
		"check5": Healthy("ok"),
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = agg.OverallStatus(results)
	}
}

// BenchmarkReadinessHandler_ServeHTTP measures readiness handler overhead.
func BenchmarkReadinessHandler_ServeHTTP(b *testing.B) {
	agg := NewAggregator(AggregatorConfig{})
	agg.Register(NewCheckerFunc("check", func(ctx context.Context) Result {
		return Healthy("ok")
	}))

	handler := ReadinessHandler(agg)
	req := httptest.NewRequest("GET", "/readyz", nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
	}
}

// BenchmarkDetailedHandler_ServeHTTP measures detailed handler overhead.
func BenchmarkDetailedHandler_ServeHTTP(b *testing.B) {
	agg := NewAggregator(AggregatorConfig{})
	for i := 0; i < 3; i++ {
		agg.Register(NewCheckerFunc(fmt.Sprintf("check%d", i), func(ctx context.Context) Result {
			return Healthy("ok")
		}))
	}

	handler := DetailedHandler(agg)
	req := httptest.NewRequest("GET", "/health", nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
	}
}
