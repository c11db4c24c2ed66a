// Package resp implements the wire dialect described in SPEC_FULL.md §1:
// an inline-only request parser and the full RESP reply encoder.
package resp

import (
	"bytes"
	"strings"
)

// Command is one parsed request: its uppercased verb and the remaining
// tokens, preserved as-is.
type Command struct {
	Verb string
	Args []string
}

// Parse splits line — the bytes of one request up to but not including
// its terminating CRLF — into a Command. Tokens are separated by ASCII
// whitespace with no embedded quoting; empty tokens are dropped. An
// empty or all-whitespace line yields a zero-value Command with an
// empty Verb.
func Parse(line []byte) Command {
	fields := bytes.Fields(line)
	if len(fields) == 0 {
		return Command{}
	}
	args := make([]string, len(fields)-1)
	for i, f := range fields[1:] {
		args[i] = string(f)
	}
	return Command{
		Verb: strings.ToUpper(string(fields[0])),
		Args: args,
	}
}
