package metrics

import (
	"github.com/delaneyj/fiberparty/fiber"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "fiber"

const (
	outcomeOK    = "ok"
	outcomeError = "error"
)

// Collector records render and commit statistics. It implements
// fiber.Observer.
type Collector struct {
	renders        *prometheus.CounterVec
	renderDuration *prometheus.HistogramVec
	renderedNodes  prometheus.Histogram
	diagnostics    prometheus.Counter

	commits        *prometheus.CounterVec
	commitDuration *prometheus.HistogramVec
	mutations      *prometheus.CounterVec
	unmounts       prometheus.Counter
}

var _ fiber.Observer = (*Collector)(nil)

// NewCollector registers the metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		renders: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "renders_total",
			Help:      "Render passes by lane and outcome",
		}, []string{"lane", "outcome"}),
		renderDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "Time spent building the work-in-progress tree",
			Buckets:   []float64{0.00001, 0.0001, 0.001, 0.01, 0.1},
		}, []string{"lane"}),
		renderedNodes: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rendered_nodes",
			Help:      "Work nodes visited per render pass",
			Buckets:   []float64{1, 10, 100, 1000, 10000, 100000},
		}),
		diagnostics: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "diagnostics_total",
			Help:      "Unsupported children ignored while reconciling",
		}),
		commits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commits_total",
			Help:      "Commits by lane and outcome",
		}, []string{"lane", "outcome"}),
		commitDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "commit_duration_seconds",
			Help:      "Time spent applying mutations to the host",
			Buckets:   []float64{0.00001, 0.0001, 0.001, 0.01, 0.1},
		}, []string{"lane"}),
		mutations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_total",
			Help:      "Effects applied during commit by kind",
		}, []string{"kind"}),
		unmounts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unmounts_total",
			Help:      "Components removed from a committed tree",
		}),
	}
}

func outcome(err error) string {
	if err != nil {
		return outcomeError
	}
	return outcomeOK
}

func (c *Collector) RenderFinished(_ *fiber.Root, stats fiber.RenderStats) {
	lane := stats.Lane.String()
	c.renders.WithLabelValues(lane, outcome(stats.Err)).Inc()
	c.renderDuration.WithLabelValues(lane).Observe(stats.Elapsed.Seconds())
	c.renderedNodes.Observe(float64(stats.Nodes))
	c.diagnostics.Add(float64(stats.Diagnostics))
}

func (c *Collector) CommitFinished(_ *fiber.Root, stats fiber.CommitStats) {
	lane := stats.Lane.String()
	c.commits.WithLabelValues(lane, outcome(stats.Err)).Inc()
	c.commitDuration.WithLabelValues(lane).Observe(stats.Elapsed.Seconds())
	c.mutations.WithLabelValues("placement").Add(float64(stats.Placements))
	c.mutations.WithLabelValues("update").Add(float64(stats.Updates))
	c.mutations.WithLabelValues("deletion").Add(float64(stats.Deletions))
	c.mutations.WithLabelValues("host_removal").Add(float64(stats.HostRemoved))
}

func (c *Collector) ComponentUnmounted(*fiber.Root, *fiber.Node) {
	c.unmounts.Inc()
}
