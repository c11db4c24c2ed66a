// Package command provides CLI command definitions for keydb-cli.
//
// It uses urfave/cli/v2 for command parsing and supports both
// single-command mode (keydb-cli -s host:port GET foo) and interactive
// REPL mode (keydb-cli -s host:port).
package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/keydb/keydb/internal/cli/client"
	"github.com/keydb/keydb/internal/cli/repl"
)

// Build information, set via ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:      "keydb-cli",
		Usage:     "keydb command-line client",
		Version:   fmt.Sprintf("%s (commit: %s)", Version, Commit),
		Flags:     globalFlags(),
		ArgsUsage: "[command [arg...]]",
		Action:    rootAction,
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "keydb-server address",
			EnvVars: []string{"KEYDB_SERVER"},
			Value:   "127.0.0.1:6379",
		},
	}
}

// rootAction runs a one-shot command when arguments are given, or drops
// into the interactive REPL otherwise.
func rootAction(c *cli.Context) error {
	addr := c.String("server")
	conn := client.New(addr)
	if err := conn.Connect(); err != nil {
		return fmt.Errorf("connect to %s: %w", addr, err)
	}
	defer conn.Close()

	if c.Args().Len() == 0 {
		return repl.New(conn).Run()
	}

	reply, err := conn.Execute(c.Args().Slice())
	if err != nil {
		return err
	}
	fmt.Println(reply)
	return nil
}
