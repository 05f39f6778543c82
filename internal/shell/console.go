package shell

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/kyleking/primitive-db/internal/policy"
)

// CancelledMessage is printed when a destructive command is declined
const CancelledMessage = "Operation cancelled."

// ConsoleConfirmer asks on the console before destructive commands. Only "y"
// and "yes" (any case) approve; end of input declines.
type ConsoleConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

// NewConsoleConfirmer reads answers from in. The shell must read its command
// lines from the same reader.
func NewConsoleConfirmer(in *bufio.Reader, out io.Writer) *ConsoleConfirmer {
	return &ConsoleConfirmer{in: in, out: out}
}

// Confirm prints the question and blocks until a line arrives
func (c *ConsoleConfirmer) Confirm(_ context.Context, action string) bool {
	fmt.Fprintf(c.out, "Are you sure you want to perform %q? [y/n]: ", action)

	response, err := c.in.ReadString('\n')
	if err != nil && response == "" {
		fmt.Fprintln(c.out)
		return false
	}

	switch strings.ToLower(strings.TrimSpace(response)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// ConsoleReporter prints policy diagnostics, one line each
type ConsoleReporter struct {
	out io.Writer
}

// NewConsoleReporter writes to out
func NewConsoleReporter(out io.Writer) *ConsoleReporter {
	return &ConsoleReporter{out: out}
}

// Failure prints the categorised diagnostic
func (r *ConsoleReporter) Failure(_ string, err error) {
	fmt.Fprintln(r.out, policy.Describe(err))
}

// Cancelled prints the cancellation notice
func (r *ConsoleReporter) Cancelled(string) {
	fmt.Fprintln(r.out, CancelledMessage)
}

// Elapsed prints the timing line
func (r *ConsoleReporter) Elapsed(op string, d time.Duration) {
	fmt.Fprintln(r.out, policy.FormatElapsed(op, d))
}
