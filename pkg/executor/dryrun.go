package executor

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// DryRun prints commands instead of running them and remembers what it was asked to run.
type DryRun struct {
	out io.Writer

	mu       sync.Mutex
	commands []string
}

// NewDryRun returns a DryRun writing each command line to out. out may be nil.
func NewDryRun(out io.Writer) *DryRun {
	return &DryRun{out: out}
}

func (e *DryRun) Name() string {
	return "dry-run"
}

func (e *DryRun) Execute(_ context.Context, _, _ io.Writer, command string, args ...string) (int, error) {
	line := CommandString(command, args)

	e.mu.Lock()
	e.commands = append(e.commands, line)
	e.mu.Unlock()

	if e.out != nil {
		if _, err := fmt.Fprintln(e.out, line); err != nil {
			return -1, fmt.Errorf("could not print command: %w", err)
		}
	}
	return 0, nil
}

// Commands returns the command lines seen so far, in order.
func (e *DryRun) Commands() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]string, len(e.commands))
	copy(out, e.commands)
	return out
}
