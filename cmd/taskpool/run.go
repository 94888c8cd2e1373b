package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	taskpool "github.com/Swind/go-task-pool"
	"github.com/Swind/go-task-pool/core"
	obs "github.com/Swind/go-task-pool/observability/prometheus"
)

func RunCommand() *cli.Command {
	return &cli.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "Run timer-woken tasks and print the pool snapshot",

		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "tasks",
				Aliases: []string{"n"},
				Value:   100,
				Usage:   "Number of tasks to spawn",
			},
			&cli.IntFlag{
				Name:  "rounds",
				Value: 3,
				Usage: "Timer wakeups each task waits for before completing",
			},
			&cli.DurationFlag{
				Name:  "delay",
				Value: 5 * time.Millisecond,
				Usage: "Base timer delay",
			},
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "Serve Prometheus metrics on this address, e.g. :2112",
			},
			&cli.DurationFlag{
				Name:  "hold",
				Usage: "Keep the metrics endpoint up this long after the workload finishes",
			},
			&cli.IntFlag{
				Name:  "recent",
				Value: 10,
				Usage: "Poll records to include in the snapshot",
			},
		},

		Action: RunAction,
	}
}

func RunAction(c *cli.Context) error {
	// 1. Get flags
	tasks := c.Int("tasks")
	rounds := c.Int("rounds")
	delay := c.Duration("delay")
	metricsAddr := c.String("metrics-addr")

	// 2. Validate (format only)
	if tasks < 0 {
		return cli.Exit("tasks must not be negative", 1)
	}
	if rounds < 0 {
		return cli.Exit("rounds must not be negative", 1)
	}

	cfg, err := resolveConfig(c)
	if err != nil {
		return err
	}

	// 3. Build the pool
	logger := core.NewDefaultLoggerWithWriter(c.App.ErrWriter, cfg.MaxLevel)
	handlers := &core.TaskSchedulerConfig{Logger: logger}

	var reg *prom.Registry
	if metricsAddr != "" {
		reg = prom.NewRegistry()
		exporter, err := obs.NewMetricsExporter("taskpool", reg, obs.ExporterOptions{})
		if err != nil {
			return cli.Exit(fmt.Sprintf("Failed to create metrics exporter: %v", err), 1)
		}
		handlers.Metrics = exporter
	}

	pool := taskpool.NewGoroutineThreadPoolWithConfig(cfg, handlers)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	pool.Start(ctx)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	if reg != nil {
		snapshots, err := obs.NewSnapshotPoller(reg, 100*time.Millisecond)
		if err != nil {
			return cli.Exit(fmt.Sprintf("Failed to create snapshot poller: %v", err), 1)
		}
		snapshots.AddPool(cfg.Name, pool)
		snapshots.Start(gctx)
		defer snapshots.Stop()

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		server := &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		g.Go(func() error {
			if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
			defer shutdownCancel()
			return server.Shutdown(shutdownCtx)
		})
		logger.Info("metrics endpoint listening", core.F("addr", metricsAddr))
	}

	// 4. Run the workload, then release the metrics server
	g.Go(func() error {
		defer cancel()
		started := time.Now()
		if err := runWorkload(gctx, pool, tasks, rounds, delay); err != nil {
			return err
		}
		logger.Info("workload finished", core.F("tasks", tasks), core.F("elapsed", time.Since(started)))
		if hold := c.Duration("hold"); hold > 0 && reg != nil {
			select {
			case <-time.After(hold):
			case <-gctx.Done():
			}
		}
		return nil
	})

	runErr := g.Wait()
	stopErr := pool.StopGraceful(cfg.ShutdownTimeout)

	// 5. Format output
	if err := core.WriteSnapshot(c.App.Writer, pool.Snapshot(c.Int("recent"))); err != nil {
		return cli.Exit(fmt.Sprintf("Failed to write snapshot: %v", err), 1)
	}

	if err := errors.Join(runErr, stopErr); err != nil {
		return cli.Exit(fmt.Sprintf("Failed: %v", err), 1)
	}
	return nil
}
