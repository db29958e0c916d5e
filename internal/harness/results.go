// Package harness drives the Glintt test cycles: pass/fail accounting,
// console reporting, result files, and the automated smoke run.
package harness

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Results accumulates pass/fail lines for one run. Checks print as they
// are recorded so a hung run still shows how far it got.
type Results struct {
	out    io.Writer
	passed []string
	failed []string
}

// NewResults returns an empty tally writing to out, or stdout when nil.
func NewResults(out io.Writer) *Results {
	if out == nil {
		out = os.Stdout
	}
	return &Results{out: out}
}

// AddPass records and prints a passing check.
func (r *Results) AddPass(message string) {
	r.passed = append(r.passed, message)
	fmt.Fprintf(r.out, "PASS: %s\n", message)
}

// AddFail records and prints a failing check.
func (r *Results) AddFail(message string) {
	r.failed = append(r.failed, message)
	fmt.Fprintf(r.out, "FAIL: %s\n", message)
}

// Success reports whether no check failed.
func (r *Results) Success() bool {
	return len(r.failed) == 0
}

// Passed returns a copy of the recorded passing checks.
func (r *Results) Passed() []string {
	return append([]string(nil), r.passed...)
}

// Failed returns a copy of the recorded failing checks.
func (r *Results) Failed() []string {
	return append([]string(nil), r.failed...)
}

// Summary prints the final tally and returns Success.
func (r *Results) Summary() bool {
	rule := strings.Repeat("=", 70)
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, rule)
	fmt.Fprintln(r.out, "TEST SUMMARY")
	fmt.Fprintln(r.out, rule)
	fmt.Fprintf(r.out, "Passed: %d\n", len(r.passed))
	fmt.Fprintf(r.out, "Failed: %d\n", len(r.failed))

	if len(r.failed) > 0 {
		fmt.Fprintln(r.out, "\nFailures:")
		for _, f := range r.failed {
			fmt.Fprintf(r.out, "  - %s\n", f)
		}
	}

	fmt.Fprintln(r.out, rule)
	return r.Success()
}
