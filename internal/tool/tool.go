// Package tool drives the wrapped model-serving tool installed in the venv.
// Every invocation runs as the service account.
package tool

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"llmsvc/internal/config"
	"llmsvc/internal/executil"
	"llmsvc/internal/host"
	"llmsvc/pkg/types"
)

// SystemPath is appended after the venv's bin directory in PATH.
const SystemPath = "/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin"

type Tool struct {
	Runner      host.AccountRunner
	User        string
	Home        string
	VenvDir     string
	Binary      string
	ListArgs    []string
	BackendFlag string
	PortFlag    string
}

func New(r host.AccountRunner, cfg config.Config) *Tool {
	return &Tool{
		Runner:      r,
		User:        cfg.User,
		Home:        cfg.StorageDir,
		VenvDir:     cfg.VenvDir(),
		Binary:      cfg.ToolPath(),
		ListArgs:    cfg.Tool.ListArgs,
		BackendFlag: cfg.Tool.BackendFlag,
		PortFlag:    cfg.Tool.PortFlag,
	}
}

// PathEnv is the PATH value services and tool invocations run with.
func (t *Tool) PathEnv() string { return filepath.Join(t.VenvDir, "bin") + ":" + SystemPath }

func (t *Tool) env() map[string]string {
	return map[string]string{"HOME": t.Home, "PATH": t.PathEnv()}
}

func (t *Tool) cmd(args ...string) executil.Cmd {
	return executil.Cmd{Path: t.Binary, Args: args, Env: t.env(), Dir: t.Home}
}

// Import registers a local model with the tool under the target's service id.
func (t *Tool) Import(ctx context.Context, tg types.Target) error {
	if !tg.Kind.Local() {
		return fmt.Errorf("import: %s target %q is not local", tg.Kind, tg.ServiceID)
	}
	args := []string{"import", tg.ServiceID, tg.Model}
	if tg.Backend != "" && t.BackendFlag != "" {
		args = append(args, t.BackendFlag, tg.Backend)
	}
	if err := t.Runner.RunAs(ctx, t.User, t.cmd(args...)); err != nil {
		return fmt.Errorf("import %s: %w", tg.ServiceID, err)
	}
	return nil
}

// ListModels asks the tool for the hub's model identifiers.
func (t *Tool) ListModels(ctx context.Context) ([]string, error) {
	out, err := t.Runner.OutputAs(ctx, t.User, t.cmd(t.ListArgs...))
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	return ParseModelList(out), nil
}

// StartCommand is the argv a service runs to serve tg on port.
func (t *Tool) StartCommand(tg types.Target, port int) []string {
	argv := []string{t.Binary, "start"}
	argv = append(argv, tg.StartArgs(t.BackendFlag)...)
	return append(argv, t.PortFlag, strconv.Itoa(port))
}
