// Package metrics exposes Prometheus metrics for the point engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Provider struct {
	reg *prometheus.Registry

	ChangesTotal    *prometheus.CounterVec
	FeedErrorsTotal prometheus.Counter
	CachedPoints    prometheus.Gauge
	OpenStreams     prometheus.Gauge
}

func New() *Provider {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	p := &Provider{
		reg: reg,
		ChangesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "points_feed_changes_total",
			Help: "Point change notifications applied to the cache, by kind.",
		}, []string{"kind"}),
		FeedErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "points_feed_errors_total",
			Help: "Change feed subscription failures.",
		}),
		CachedPoints: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "points_cached",
			Help: "Recycling points currently held in the cache.",
		}),
		OpenStreams: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "points_open_streams",
			Help: "Connected map stream clients.",
		}),
	}
	reg.MustRegister(p.ChangesTotal, p.FeedErrorsTotal, p.CachedPoints, p.OpenStreams)
	return p
}

func (p *Provider) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{})
}
