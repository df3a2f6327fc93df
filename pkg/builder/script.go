package builder

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/go-logr/logr"
)

// Runner executes recipe script commands through a
// shell, the way the external build tooling would.
type Runner struct {
	// Dir is the working directory commands run in
	Dir string
	// Env is appended to the ambient environment
	Env []string
}

// Run executes each command in order, streaming output
// to the parent process. The first failing command stops
// the run.
func (r *Runner) Run(ctx context.Context, commands []string) error {
	log := logr.FromContextOrDiscard(ctx)

	for _, command := range commands {
		log.Info("running command", "command", command, "dir", r.Dir)

		cmd := exec.CommandContext(ctx, "sh", "-c", command)
		cmd.Dir = r.Dir
		cmd.Env = append(os.Environ(), r.Env...)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			return fmt.Errorf("running %q: %w", command, err)
		}
	}
	return nil
}
