package fixture

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// T is the part of testing.TB used by fixtures
type T interface {
	Helper()
	Errorf(format string, args ...any)
	Logf(format string, args ...any)
	Cleanup(func())
}

// Reporter is T for running fixtures outside of `go test`.
// Failures are accumulated and surfaced by Finish.
type Reporter struct {
	out io.Writer

	lock     sync.Mutex
	failures []string
	logs     []string
	cleanups []func()
}

// NewReporter returns a Reporter that writes to out,
// which may be nil
func NewReporter(out io.Writer) *Reporter {
	if out == nil {
		out = io.Discard
	}
	return &Reporter{out: out}
}

// Helper is no-op
func (r *Reporter) Helper() {}

// Errorf records a failure
func (r *Reporter) Errorf(format string, args ...any) {
	msg := strings.TrimSpace(fmt.Sprintf(format, args...))

	r.lock.Lock()
	r.failures = append(r.failures, msg)
	r.lock.Unlock()

	fmt.Fprintf(r.out, "FAIL: %s\n", msg)
}

// Logf records a diagnostic message
func (r *Reporter) Logf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)

	r.lock.Lock()
	r.logs = append(r.logs, msg)
	r.lock.Unlock()

	fmt.Fprintf(r.out, "%s\n", msg)
}

// Cleanup registers a function to be called by Finish
func (r *Reporter) Cleanup(f func()) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.cleanups = append(r.cleanups, f)
}

// Failed returns true if a failure was recorded
func (r *Reporter) Failed() bool {
	r.lock.Lock()
	defer r.lock.Unlock()
	return len(r.failures) > 0
}

// Failures returns recorded failures
func (r *Reporter) Failures() []string {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]string(nil), r.failures...)
}

// Logs returns recorded diagnostics
func (r *Reporter) Logs() []string {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]string(nil), r.logs...)
}

// Finish calls registered cleanups in last added, first called order,
// and returns the number of recorded failures
func (r *Reporter) Finish() int {
	for {
		r.lock.Lock()
		n := len(r.cleanups)
		if n == 0 {
			r.lock.Unlock()
			break
		}
		f := r.cleanups[n-1]
		r.cleanups = r.cleanups[:n-1]
		r.lock.Unlock()

		f()
	}

	r.lock.Lock()
	defer r.lock.Unlock()
	return len(r.failures)
}
