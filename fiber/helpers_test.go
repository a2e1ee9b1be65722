package fiber_test

import (
	"testing"

	"github.com/delaneyj/fiberparty/element"
	"github.com/delaneyj/fiberparty/fiber"
	"github.com/delaneyj/fiberparty/memhost"
	"github.com/google/go-cmp/cmp"
)

// recorder is an observer keeping every stat and the container HTML after
// each commit.
type recorder struct {
	container *memhost.Instance

	renders   []fiber.RenderStats
	commits   []fiber.CommitStats
	snapshots []string
	unmounted []string
	errs      []error
}

func (rec *recorder) RenderFinished(_ *fiber.Root, stats fiber.RenderStats) {
	rec.renders = append(rec.renders, stats)
}

func (rec *recorder) CommitFinished(_ *fiber.Root, stats fiber.CommitStats) {
	rec.commits = append(rec.commits, stats)
	rec.snapshots = append(rec.snapshots, memhost.HTML(rec.container))
}

func (rec *recorder) ComponentUnmounted(_ *fiber.Root, n *fiber.Node) {
	rec.unmounted = append(rec.unmounted, n.String())
}

func (rec *recorder) lanes() []fiber.Lane {
	lanes := make([]fiber.Lane, len(rec.renders))
	for i, s := range rec.renders {
		lanes[i] = s.Lane
	}
	return lanes
}

type fixture struct {
	host      *memhost.Host
	container *memhost.Instance
	r         *fiber.Reconciler
	root      *fiber.Root
	rec       *recorder
}

func newFixture(t *testing.T, opts ...fiber.Option) *fixture {
	t.Helper()
	host := memhost.New()
	return newFixtureWithHost(t, host, host, opts...)
}

// newFixtureWithHost lets a test hand the reconciler a wrapped host while
// still draining the memhost loop.
func newFixtureWithHost(t *testing.T, host *memhost.Host, h fiber.Host, opts ...fiber.Option) *fixture {
	t.Helper()
	f := &fixture{
		host:      host,
		container: host.NewContainer(),
	}
	f.rec = &recorder{container: f.container}
	opts = append([]fiber.Option{
		fiber.WithObserver(f.rec),
		fiber.WithErrorHandler(func(_ *fiber.Root, err error) {
			f.rec.errs = append(f.rec.errs, err)
		}),
	}, opts...)
	f.r = fiber.CreateReconciler(h, opts...)
	f.root = f.r.CreateContainer(f.container)
	return f
}

// render schedules el and drains the host loop.
func (f *fixture) render(el *element.Element) {
	f.r.Render(f.root, el)
	f.host.RunUntilIdle()
}

func (f *fixture) html() string {
	return memhost.HTML(f.container)
}

func (f *fixture) ops() []memhost.Op {
	return f.host.Ops()
}

func (f *fixture) assertOps(t *testing.T, want []memhost.Op) {
	t.Helper()
	if diff := cmp.Diff(want, f.ops()); diff != "" {
		t.Errorf("host ops mismatch (-want +got):\n%s", diff)
	}
}

func opKinds(ops []memhost.Op) []memhost.OpKind {
	kinds := make([]memhost.OpKind, len(ops))
	for i, op := range ops {
		kinds[i] = op.Kind
	}
	return kinds
}
