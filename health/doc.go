// Package health reports the operational state of a device host.
//
// A Checker reports one component's health: Healthy, Degraded, or
// Unhealthy. LinkChecker adapts a supervised broker link into a Checker, so
// hosts surface connection state the same way they surface any other
// dependency. Aggregator fans a pass over every registered checker and
// folds the results into an overall status, and the HTTP handlers expose
// the aggregate on the usual probe endpoints.
//
// # Checking a link
//
//	agg := health.NewAggregator(health.AggregatorConfig{})
//	agg.Register(health.NewLinkChecker("hub", sup))
//
//	results := agg.CheckAll(ctx)
//	overall := agg.OverallStatus(results)
//
// A degraded link is still being recovered by its supervisor; an unhealthy
// link needs operator action, and the result message says which.
//
// # HTTP endpoints
//
//	mux := http.NewServeMux()
//	health.RegisterHandlers(mux, agg)
//
// /healthz is liveness, /readyz is readiness across every checker, and
// /health returns per-checker detail as JSON.
package health
