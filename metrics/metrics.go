// Package metrics holds the Prometheus collectors for scene assembly, feature
// fetches and place search.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	OutcomeOK    = "ok"
	OutcomeEmpty = "empty"
	OutcomeError = "error"
)

// Collector bundles the service metrics. A nil *Collector is valid and
// records nothing.
type Collector struct {
	gatherer prometheus.Gatherer

	SceneBuilds        prometheus.Counter
	SceneBuildDuration prometheus.Histogram
	SceneFeatures      *prometheus.CounterVec
	SceneDropped       *prometheus.CounterVec
	FeatureFetch       *prometheus.CounterVec
	PlaceSearch        *prometheus.CounterVec
}

// NewCollector registers the metrics against reg, defaulting to the global
// registry when nil. Collectors that already exist are reused.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	builds, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scene_builds_total",
		Help: "Total number of scene assembly passes.",
	}), "scene_builds_total")
	if err != nil {
		return nil, err
	}

	duration, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "scene_build_duration_seconds",
		Help:    "Scene assembly latency in seconds.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}), "scene_build_duration_seconds")
	if err != nil {
		return nil, err
	}

	features, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scene_features_total",
		Help: "Meshes built, labeled by semantic type.",
	}, []string{"kind"}), "scene_features_total")
	if err != nil {
		return nil, err
	}

	dropped, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scene_features_dropped_total",
		Help: "Ways skipped during assembly, labeled by reason.",
	}, []string{"reason"}), "scene_features_dropped_total")
	if err != nil {
		return nil, err
	}

	fetch, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feature_fetch_total",
		Help: "Map feature fetches, labeled by source and outcome.",
	}, []string{"source", "outcome"}), "feature_fetch_total")
	if err != nil {
		return nil, err
	}

	search, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "place_search_total",
		Help: "Place search and reverse geocoding requests, labeled by outcome.",
	}, []string{"outcome"}), "place_search_total")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:           gatherer,
		SceneBuilds:        builds,
		SceneBuildDuration: duration,
		SceneFeatures:      features,
		SceneDropped:       dropped,
		FeatureFetch:       fetch,
		PlaceSearch:        search,
	}, nil
}

// Handler exposes the /metrics endpoint.
func (c *Collector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// ObserveScene records one assembly pass.
func (c *Collector) ObserveScene(elapsed time.Duration, built, dropped map[string]int) {
	if c == nil {
		return
	}
	c.SceneBuilds.Inc()
	c.SceneBuildDuration.Observe(elapsed.Seconds())
	for kind, n := range built {
		c.SceneFeatures.WithLabelValues(kind).Add(float64(n))
	}
	for reason, n := range dropped {
		c.SceneDropped.WithLabelValues(reason).Add(float64(n))
	}
}

// ObserveFetch records a feature fetch from source.
func (c *Collector) ObserveFetch(source, outcome string) {
	if c == nil {
		return
	}
	c.FeatureFetch.WithLabelValues(source, outcome).Inc()
}

// ObserveSearch records a place search or reverse lookup.
func (c *Collector) ObserveSearch(outcome string) {
	if c == nil {
		return
	}
	c.PlaceSearch.WithLabelValues(outcome).Inc()
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return h, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}
