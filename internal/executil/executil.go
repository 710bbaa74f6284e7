package executil

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"
)

// Cmd describes one external command invocation.
type Cmd struct {
	Path  string
	Args  []string
	Env   map[string]string // additional env vars
	Dir   string            // working directory
	Stdin io.Reader
}

func (c Cmd) String() string {
	if len(c.Args) == 0 {
		return c.Path
	}
	return c.Path + " " + strings.Join(c.Args, " ")
}

// Runner executes commands. Run streams output to the log; Output captures stdout.
type Runner interface {
	Run(ctx context.Context, c Cmd) error
	Output(ctx context.Context, c Cmd) ([]byte, error)
}

// ExecRunner runs commands on the host via os/exec.
type ExecRunner struct {
	Log zerolog.Logger
}

func NewExecRunner(log zerolog.Logger) *ExecRunner { return &ExecRunner{Log: log} }

func (r *ExecRunner) command(ctx context.Context, c Cmd) *exec.Cmd {
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	if c.Dir != "" {
		cmd.Dir = c.Dir
	}
	// inherit environment
	cmd.Env = os.Environ()
	for k, v := range c.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}
	cmd.Stdin = c.Stdin
	return cmd
}

func (r *ExecRunner) Run(ctx context.Context, c Cmd) error {
	r.Log.Debug().Str("cmd", c.String()).Msg("exec")
	cmd := r.command(ctx, c)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	cmd.Stderr = cmd.Stdout
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%s: %w", c.Path, err)
	}
	stream(r.Log, c.Path, stdout)
	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("%s: %w", c.String(), err)
	}
	return nil
}

func (r *ExecRunner) Output(ctx context.Context, c Cmd) ([]byte, error) {
	r.Log.Debug().Str("cmd", c.String()).Msg("exec")
	cmd := r.command(ctx, c)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return out, fmt.Errorf("%s: %w: %s", c.String(), err, msg)
		}
		return out, fmt.Errorf("%s: %w", c.String(), err)
	}
	return out, nil
}

// stream logs each line of r at info level, tagged with the producing command.
func stream(log zerolog.Logger, prefix string, r io.Reader) {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 64*1024), 1024*1024)
	for s.Scan() {
		log.Info().Str("src", prefix).Msg(s.Text())
	}
}
