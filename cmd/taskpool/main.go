// Command taskpool runs a demonstration workload on a task pool and prints
// the pool's diagnostics snapshot.
package main

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/urfave/cli/v2"
	"go.uber.org/automaxprocs/maxprocs"

	taskpool "github.com/Swind/go-task-pool"
	"github.com/Swind/go-task-pool/core"
)

func main() {
	if err := newApp(os.Stdout, os.Stderr).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "taskpool",
		Usage:     "Run and inspect a cooperative task pool",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a TOML config file",
				EnvVars: []string{"TASKPOOL_CONFIG"},
			},
			&cli.IntFlag{
				Name:    "workers",
				Aliases: []string{"w"},
				Usage:   "Worker goroutines (0 = GOMAXPROCS)",
			},
			&cli.StringFlag{
				Name:  "max-level",
				Usage: "Most verbose log level: off, error, warn, info, debug, trace",
			},
		},
		Commands: []*cli.Command{
			RunCommand(),
			ConfigCommand(),
		},
	}
}

// resolveConfig loads the config file, if any, and applies flag overrides.
// GOMAXPROCS is aligned with the container CPU quota before zero workers is
// resolved.
func resolveConfig(c *cli.Context) (taskpool.Config, error) {
	if _, err := maxprocs.Set(maxprocs.Logger(func(string, ...any) {})); err != nil {
		return taskpool.Config{}, cli.Exit(fmt.Sprintf("set GOMAXPROCS: %v", err), 1)
	}

	cfg := taskpool.DefaultConfig()
	if path := c.String("config"); path != "" {
		loaded, err := taskpool.LoadConfig(path)
		if err != nil {
			return taskpool.Config{}, cli.Exit(err.Error(), 1)
		}
		cfg = loaded
	} else {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}

	if c.IsSet("workers") {
		cfg.Workers = c.Int("workers")
	}
	if c.IsSet("max-level") {
		level, err := core.ParseLevelFilter(c.String("max-level"))
		if err != nil {
			return taskpool.Config{}, cli.Exit(err.Error(), 1)
		}
		cfg.MaxLevel = level
	}

	if err := cfg.Validate(); err != nil {
		return taskpool.Config{}, cli.Exit(err.Error(), 1)
	}
	return cfg.Resolve(), nil
}
