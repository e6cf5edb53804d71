// Package command runs pre- and post-transfer commands on the remote host.
package command

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strings"

	"al.essio.dev/pkg/shellescape"
	"github.com/sirupsen/logrus"

	"github.com/corkine/cloud-native-tools/pkg/payload"
	"github.com/corkine/cloud-native-tools/pkg/transport"
)

// DefaultShell interprets commands on the remote side.
const DefaultShell = "bash"

// Result is the outcome of one command.
type Result struct {
	Command  string
	Output   []byte
	ExitCode int
	Skipped  bool
}

// Runner executes commands one after another through an Executor.
type Runner struct {
	exec  transport.Executor
	shell string
	log   *logrus.Entry
}

// NewRunner returns a runner; an empty shell means DefaultShell.
func NewRunner(exec transport.Executor, shell string, log *logrus.Entry) *Runner {
	if shell == "" {
		shell = DefaultShell
	}
	return &Runner{exec: exec, shell: shell, log: log}
}

// Wrap builds the command line handed to the remote login shell so that
// command reaches shell intact, whatever quotes or operators it contains.
func Wrap(shell, command string) string {
	return shell + " -c " + shellescape.Quote(command)
}

// RunAll executes commands in order. Each command may be base64 encoded,
// possibly more than once. Blank commands are skipped. A non-zero exit
// status is logged and does not stop the sequence; a transport failure does.
func (r *Runner) RunAll(ctx context.Context, commands []string) ([]Result, error) {
	results := make([]Result, 0, len(commands))

	for i, raw := range commands {
		cmd := strings.TrimSpace(payload.Resolve(raw, payload.DefaultMaxDepth))
		if cmd == "" {
			r.log.Debugf("Skipping empty command #%d", i+1)
			results = append(results, Result{Command: raw, Skipped: true})
			continue
		}

		r.log.Infof("Running: %s", cmd)
		out, code, err := r.exec.Run(ctx, Wrap(r.shell, cmd))
		if err != nil {
			return results, fmt.Errorf("run %q: %w", cmd, err)
		}
		r.logOutput(out)

		if code != 0 {
			r.log.WithField("exit", code).Warnf("Command failed: %s", cmd)
		}
		results = append(results, Result{Command: cmd, Output: out, ExitCode: code})
	}

	return results, nil
}

func (r *Runner) logOutput(out []byte) {
	sc := bufio.NewScanner(bytes.NewReader(out))
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		r.log.Info("  " + sc.Text())
	}
}
