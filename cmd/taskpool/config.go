package main

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/urfave/cli/v2"
)

func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:   "config",
		Usage:  "Print the resolved configuration as TOML",
		Action: ConfigAction,
	}
}

func ConfigAction(c *cli.Context) error {
	cfg, err := resolveConfig(c)
	if err != nil {
		return err
	}

	if err := toml.NewEncoder(c.App.Writer).Encode(cfg); err != nil {
		return cli.Exit(fmt.Sprintf("Failed to encode config: %v", err), 1)
	}
	return nil
}
