// Package metrics holds the Prometheus instrumentation for planning, review
// and the HTTP surface.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/model"
)

const namespace = "dfm"

var (
	// plansTotal counts planning requests.
	// Labels: mismatch (true, false), routes (1, 2)
	plansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "planner",
		Name:      "plans_total",
		Help:      "Planning requests by mismatch outcome and route count",
	}, []string{"mismatch", "routes"})

	// classifierConfidence tracks the recommended process confidence.
	classifierConfidence = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "planner",
		Name:      "classifier_confidence",
		Help:      "Distribution of process recommendation confidence",
		Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
	}, []string{"process_id"})

	reviewsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "review",
		Name:      "reviews_total",
		Help:      "Completed reviews by analysis mode",
	}, []string{"analysis_mode"})

	// findingsTotal counts emitted findings.
	// Labels: finding_type (rule_violation, evidence_gap), severity
	findingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "review",
		Name:      "findings_total",
		Help:      "Findings emitted by type and severity",
	}, []string{"finding_type", "severity"})

	costConfidence = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "cost",
		Name:      "confidence",
		Help:      "Distribution of cost estimate confidence",
		Buckets:   []float64{0.05, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
	}, []string{"process_id"})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route pattern, method and status",
	}, []string{"route", "method", "status"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"route", "method"})
)

// RecordPlan records a planner result.
func RecordPlan(res *model.PlanResult) {
	if res == nil {
		return
	}
	plansTotal.WithLabelValues(
		strconv.FormatBool(res.Mismatch.HasMismatch),
		strconv.Itoa(len(res.ExecutionPlans)),
	).Inc()
	classifierConfidence.WithLabelValues(res.AiRecommendation.ProcessID).
		Observe(res.AiRecommendation.Confidence)
}

// RecordReview records a completed review: one count plus per-route
// findings and cost confidence.
func RecordReview(resp *model.ReviewResponse) {
	if resp == nil {
		return
	}
	reviewsTotal.WithLabelValues(resp.AnalysisMode).Inc()
	for _, route := range resp.Routes {
		for _, f := range route.Findings {
			findingsTotal.WithLabelValues(string(f.FindingType), string(f.Severity)).Inc()
		}
		costConfidence.WithLabelValues(route.ProcessID).Observe(route.CostEstimate.Confidence)
	}
}

// RecordHTTP records one served request.
func RecordHTTP(route, method string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	httpLatency.WithLabelValues(route, method).Observe(elapsed.Seconds())
}
