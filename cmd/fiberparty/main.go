package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/delaneyj/fiberparty/fiber"
	"github.com/delaneyj/fiberparty/memhost"
	"github.com/delaneyj/fiberparty/metrics"
	"github.com/delaneyj/fiberparty/scenario"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/urfave/cli/v3"
)

const (
	opsKey     = "ops"
	htmlKey    = "html"
	verboseKey = "verbose"
	strictKey  = "strict"
)

var errExpectation = errors.New("scenario expectation failed")

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "fiberparty",
		Usage: "Reconcile view trees against an in-memory host",
		Commands: []*cli.Command{
			{
				Name:      "render",
				Usage:     "Render every step of a scenario file",
				ArgsUsage: "<scenario.yaml>",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  opsKey,
						Usage: "Print the host operations of every step",
						Value: true,
					},
					&cli.BoolFlag{
						Name:  htmlKey,
						Usage: "Print the container HTML after every step",
						Value: true,
					},
					&cli.BoolFlag{
						Name:  strictKey,
						Usage: "Fail when a step does not match its expected HTML",
						Value: true,
					},
					&cli.BoolFlag{
						Name:  verboseKey,
						Usage: "Log render and commit boundaries",
					},
				},
				Action: render,
			},
		},
	}
}

func render(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return fmt.Errorf("render: missing scenario file")
	}
	s, err := scenario.Load(path)
	if err != nil {
		return err
	}

	start := time.Now()
	log.Printf("Rendering scenario %q (%d steps)", s.Name, len(s.Steps))
	defer func() {
		log.Printf("Scenario %q finished in %v", s.Name, time.Since(start))
	}()

	level := slog.LevelWarn
	if cmd.Bool(verboseKey) {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	reg := prometheus.NewRegistry()
	host := memhost.New(memhost.WithLogger(logger.With(slog.String("subsystem", "memhost"))))
	r := fiber.CreateReconciler(host,
		fiber.WithLogger(logger.With(slog.String("subsystem", "fiber"))),
		fiber.WithObserver(metrics.NewCollector(reg)),
	)
	container := host.NewContainer()
	root := r.CreateContainer(container)
	components := builtinComponents()
	out := os.Stdout

	var failed []string
	for i, step := range s.Steps {
		el, err := step.Element(components)
		if err != nil {
			return fmt.Errorf("step %q: %w", step.Name, err)
		}

		host.ResetOps()
		r.Render(root, el)
		host.RunUntilIdle()
		if err := root.Err(); err != nil {
			return fmt.Errorf("step %q: %w", step.Name, err)
		}

		html := memhost.HTML(container)
		fmt.Fprintf(out, "== %d/%d %s\n", i+1, len(s.Steps), step.Name)
		if cmd.Bool(opsKey) {
			printOps(out, host.Ops())
		}
		if cmd.Bool(htmlKey) {
			fmt.Fprintln(out, html)
		}
		if step.Expect != nil && *step.Expect != html {
			log.Printf("Step %q: expected %s", step.Name, *step.Expect)
			failed = append(failed, step.Name)
		}
	}

	if err := printSummary(out, reg, host); err != nil {
		return err
	}
	if len(failed) > 0 && cmd.Bool(strictKey) {
		return fmt.Errorf("%w: %v", errExpectation, failed)
	}
	return nil
}

func printOps(w io.Writer, ops []memhost.Op) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "op", "child", "parent", "before", "detail"})
	for i, op := range ops {
		table.Append([]string{
			humanize.Comma(int64(i + 1)),
			string(op.Kind),
			op.Child,
			op.Parent,
			op.Before,
			op.Detail,
		})
	}
	table.Render()
}

func printSummary(w io.Writer, reg *prometheus.Registry, host *memhost.Host) error {
	families, err := reg.Gather()
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"metric", "labels", "value"})
	for _, mf := range families {
		if mf.GetType() != dto.MetricType_COUNTER {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := ""
			for _, lp := range m.GetLabel() {
				if labels != "" {
					labels += ","
				}
				labels += lp.GetName() + "=" + lp.GetValue()
			}
			table.Append([]string{
				mf.GetName(),
				labels,
				humanize.Comma(int64(m.GetCounter().GetValue())),
			})
		}
	}
	table.Append([]string{"memhost_live_instances", "", humanize.Comma(int64(host.Live().Cardinality()))})
	table.Render()
	return nil
}
