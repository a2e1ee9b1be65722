package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"runtime/pprof"
	"strconv"
	"time"

	"github.com/delaneyj/fiberparty/element"
	"github.com/delaneyj/fiberparty/fiber"
	"github.com/delaneyj/fiberparty/memhost"
	"github.com/jamiealquiza/tachymeter"
	"github.com/jedib0t/go-pretty/v6/table"
)

var (
	sizes = []int{10, 100, 1_000}
	ww    = []int{1, 10, 100}
	hh    = []int{1, 10, 100}
	iters = 100

	profile = flag.String("profile", "default.pgo", "write a cpu profile to this file, empty to disable")
)

func main() {
	flag.Parse()

	if *profile != "" {
		f, err := os.Create(*profile)
		if err != nil {
			log.Fatal(err)
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	log.Printf("warming up")
	benchmarkLists(false)

	benchmarkLists(true)
	benchmarkState(true)
}

type workload struct {
	name   string
	before func(n int) []string
	after  func(n int) []string
}

func keys(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = strconv.Itoa(i)
	}
	return out
}

var workloads = []workload{
	{
		name:   "mount",
		before: func(n int) []string { return nil },
		after:  keys,
	},
	{
		name:   "append",
		before: keys,
		after:  func(n int) []string { return append(keys(n), "new") },
	},
	{
		name:   "prepend",
		before: keys,
		after:  func(n int) []string { return append([]string{"new"}, keys(n)...) },
	},
	{
		name:   "reverse",
		before: keys,
		after: func(n int) []string {
			out := keys(n)
			for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
				out[i], out[j] = out[j], out[i]
			}
			return out
		},
	},
	{
		name:   "swap ends",
		before: keys,
		after: func(n int) []string {
			out := keys(n)
			out[0], out[len(out)-1] = out[len(out)-1], out[0]
			return out
		},
	},
	{
		name:   "remove half",
		before: keys,
		after: func(n int) []string {
			var out []string
			for i, k := range keys(n) {
				if i%2 == 0 {
					out = append(out, k)
				}
			}
			return out
		},
	},
	{
		name:   "clear",
		before: keys,
		after:  func(n int) []string { return nil },
	},
}

func list(ks []string) *element.Element {
	items := make([]any, len(ks))
	for i, k := range ks {
		items[i] = element.H("li", element.Props{"key": k, "class": "row"}, k)
	}
	return element.H("ul", nil, items)
}

func newRoot() (*memhost.Host, *fiber.Reconciler, *fiber.Root) {
	logger := slog.New(slog.DiscardHandler)
	host := memhost.New(memhost.WithLogger(logger))
	r := fiber.CreateReconciler(host,
		fiber.WithLogger(logger),
		fiber.WithErrorHandler(func(root *fiber.Root, err error) {
			log.Panic(err)
		}),
	)
	return host, r, r.CreateContainer(host.NewContainer())
}

func benchmarkLists(shouldRender bool) {
	tbl := table.NewWriter()
	tbl.SetTitle("Keyed lists")
	tbl.SetOutputMirror(os.Stdout)
	tbl.AppendHeader(table.Row{"benchmark", "avg", "min", "p75", "p99", "max"})

	for _, w := range workloads {
		for _, n := range sizes {
			tach := tachymeter.New(&tachymeter.Config{Size: iters})
			before, after := list(w.before(n)), list(w.after(n))

			for i := 0; i < iters; i++ {
				host, r, root := newRoot()
				r.Render(root, before)
				if err := r.FlushSync(); err != nil {
					log.Panic(err)
				}
				host.ResetOps()

				start := time.Now()
				r.Render(root, after)
				if err := r.FlushSync(); err != nil {
					log.Panic(err)
				}
				tach.AddTime(time.Since(start))
			}

			calc := tach.Calc()
			tbl.AppendRows([]table.Row{
				{
					fmt.Sprintf("%s: %d", w.name, n),
					calc.Time.Avg,
					calc.Time.Min,
					calc.Time.P75,
					calc.Time.P99,
					calc.Time.Max,
				},
			})
		}
	}

	if shouldRender {
		tbl.Render()
	}
}

// benchmarkState measures one state update at the top of w chains of h nested
// components.
func benchmarkState(shouldRender bool) {
	tbl := table.NewWriter()
	tbl.SetTitle("State updates")
	tbl.SetOutputMirror(os.Stdout)
	tbl.AppendHeader(table.Row{"benchmark", "avg", "min", "p75", "p99", "max"})

	for _, w := range ww {
		for _, h := range hh {
			tach := tachymeter.New(&tachymeter.Config{Size: iters})

			layer := fiber.NewComponent("Layer", func(hooks *fiber.Hooks, props element.Props) any {
				depth, _ := props["depth"].(int)
				if depth == 0 {
					return element.H("span", nil, props["value"])
				}
				next := props["self"].(*fiber.Component)
				return next.Element(element.Props{"depth": depth - 1, "value": props["value"], "self": next})
			})

			var set *fiber.Dispatch[int]
			app := fiber.NewComponent("App", func(hooks *fiber.Hooks, props element.Props) any {
				value, d := fiber.UseState(hooks, 0)
				set = d
				chains := make([]any, w)
				for i := range chains {
					chains[i] = layer.Element(element.Props{"depth": h, "value": value, "self": layer})
				}
				return element.H("div", nil, chains)
			})

			_, r, root := newRoot()
			r.Render(root, app.Element(nil))
			if err := r.FlushSync(); err != nil {
				log.Panic(err)
			}

			for i := 0; i < iters; i++ {
				start := time.Now()
				set.Update(func(prev int) int { return prev + 1 })
				if err := r.FlushSync(); err != nil {
					log.Panic(err)
				}
				tach.AddTime(time.Since(start))
			}

			calc := tach.Calc()
			tbl.AppendRows([]table.Row{
				{
					fmt.Sprintf("propagate: %d * %d", w, h),
					calc.Time.Avg,
					calc.Time.Min,
					calc.Time.P75,
					calc.Time.P99,
					calc.Time.Max,
				},
			})
		}
	}

	if shouldRender {
		tbl.Render()
	}
}
