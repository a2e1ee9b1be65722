package metrics_test

import (
	"strings"
	"testing"

	"github.com/delaneyj/fiberparty/element"
	"github.com/delaneyj/fiberparty/fiber"
	"github.com/delaneyj/fiberparty/memhost"
	"github.com/delaneyj/fiberparty/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	collector := metrics.NewCollector(reg)

	host := memhost.New()
	r := fiber.CreateReconciler(host, fiber.WithObserver(collector))
	root := r.CreateContainer(host.NewContainer())

	app := fiber.NewComponent("App", func(h *fiber.Hooks, props element.Props) any {
		return element.H("div", nil, element.H("span", nil, props["text"]))
	})

	r.Render(root, app.Element(element.Props{"text": "hi"}))
	host.RunUntilIdle()
	r.Render(root, app.Element(element.Props{"text": "bye"}))
	host.RunUntilIdle()
	r.Render(root, nil)
	host.RunUntilIdle()
	require.NoError(t, root.Err())

	expected := `
# HELP fiber_commits_total Commits by lane and outcome
# TYPE fiber_commits_total counter
fiber_commits_total{lane="sync",outcome="ok"} 3
# HELP fiber_mutations_total Effects applied during commit by kind
# TYPE fiber_mutations_total counter
fiber_mutations_total{kind="deletion"} 1
fiber_mutations_total{kind="host_removal"} 1
fiber_mutations_total{kind="placement"} 1
fiber_mutations_total{kind="update"} 1
# HELP fiber_renders_total Render passes by lane and outcome
# TYPE fiber_renders_total counter
fiber_renders_total{lane="sync",outcome="ok"} 3
# HELP fiber_unmounts_total Components removed from a committed tree
# TYPE fiber_unmounts_total counter
fiber_unmounts_total 1
`
	err := testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"fiber_commits_total",
		"fiber_mutations_total",
		"fiber_renders_total",
		"fiber_unmounts_total",
	)
	assert.NoError(t, err)

	count, err := testutil.GatherAndCount(reg, "fiber_render_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
