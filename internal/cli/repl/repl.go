// Package repl provides the interactive REPL mode for keydb-cli.
package repl

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/keydb/keydb/internal/cli/client"
)

// REPL reads commands from input, sends each to a connected client, and
// prints the decoded reply to output.
type REPL struct {
	input  io.Reader
	output io.Writer
	client *client.Client
}

// New creates a REPL bound to c, reading from stdin and writing to
// stdout.
func New(c *client.Client) *REPL {
	return &REPL{
		input:  os.Stdin,
		output: os.Stdout,
		client: c,
	}
}

// Run starts the read-eval-print loop until EOF, "exit", or "quit".
func (r *REPL) Run() error {
	reader := bufio.NewReader(r.input)

	for {
		fmt.Fprint(r.output, "keydb> ")

		line, err := reader.ReadString('\n')
		if err == io.EOF {
			fmt.Fprintln(r.output)
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}

		reply, err := r.client.Execute(strings.Fields(line))
		if err != nil {
			fmt.Fprintf(r.output, "error: %v\n", err)
			continue
		}
		fmt.Fprintln(r.output, reply)
	}
}
