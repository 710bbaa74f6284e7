package host

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"llmsvc/internal/executil"
)

// RequiredCommands must be resolvable on PATH before provisioning starts.
var RequiredCommands = []string{"sudo", "systemctl", "getent", "groupadd", "useradd", "usermod", "chown", "chmod"}

// Fn indirection for preflight so tests can stub the process environment.
var (
	fnGeteuid  = os.Geteuid
	fnLookPath = exec.LookPath
)

// Preflight verifies root privileges and the presence of every command.
func Preflight(commands []string) error {
	if fnGeteuid() != 0 {
		return ErrNotRoot
	}
	var missing []string
	for _, c := range commands {
		if _, err := fnLookPath(c); err != nil {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%w: %s", ErrMissingCommand, strings.Join(missing, ", "))
	}
	return nil
}

// System implements every capability interface with host commands.
type System struct {
	Runner  executil.Runner
	UnitDir string
	PkgMgr  PackageManager
}

func NewSystem(r executil.Runner, unitDir string, pm PackageManager) *System {
	return &System{Runner: r, UnitDir: unitDir, PkgMgr: pm}
}

func (s *System) run(ctx context.Context, name string, args ...string) error {
	return s.Runner.Run(ctx, executil.Cmd{Path: name, Args: args})
}

// exists treats a non-zero exit of a lookup command as "absent".
func (s *System) exists(ctx context.Context, name string, args ...string) (bool, error) {
	_, err := s.Runner.Output(ctx, executil.Cmd{Path: name, Args: args})
	if err == nil {
		return true, nil
	}
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	return false, nil
}

func (s *System) GroupExists(ctx context.Context, group string) (bool, error) {
	return s.exists(ctx, "getent", "group", group)
}

func (s *System) CreateGroup(ctx context.Context, group string) error {
	return s.run(ctx, "groupadd", "--system", group)
}

func (s *System) UserExists(ctx context.Context, user string) (bool, error) {
	return s.exists(ctx, "getent", "passwd", user)
}

func (s *System) CreateUser(ctx context.Context, user, group, home string) error {
	return s.run(ctx, "useradd", "--system", "--gid", group, "--home-dir", home,
		"--no-create-home", "--shell", "/usr/sbin/nologin", user)
}

func (s *System) SetHome(ctx context.Context, user, home string) error {
	return s.run(ctx, "usermod", "--home", home, user)
}

func (s *System) AddToGroup(ctx context.Context, user, group string) error {
	return s.run(ctx, "usermod", "-aG", group, user)
}

func (s *System) Chown(ctx context.Context, path, user, group string, recursive bool) error {
	args := []string{user + ":" + group, path}
	if recursive {
		args = append([]string{"-R"}, args...)
	}
	return s.run(ctx, "chown", args...)
}

func (s *System) Chmod(ctx context.Context, path string, mode os.FileMode) error {
	return s.run(ctx, "chmod", fmt.Sprintf("%o", mode.Perm()), path)
}

func (s *System) Installed(ctx context.Context, pkg string) (bool, error) {
	if s.PkgMgr.Name == "" {
		return false, fmt.Errorf("no supported package manager detected")
	}
	q := s.PkgMgr.Query
	return s.exists(ctx, q[0], append(append([]string{}, q[1:]...), pkg)...)
}

func (s *System) DefaultPackages() []string {
	return append([]string(nil), s.PkgMgr.Python...)
}

func (s *System) Install(ctx context.Context, pkgs ...string) error {
	if s.PkgMgr.Name == "" {
		return fmt.Errorf("no supported package manager detected")
	}
	if len(pkgs) == 0 {
		return nil
	}
	i := s.PkgMgr.Install
	return s.Runner.Run(ctx, executil.Cmd{
		Path: i[0],
		Args: append(append([]string{}, i[1:]...), pkgs...),
		Env:  s.PkgMgr.Env,
	})
}

// WriteUnit persists a unit file and returns its path.
func (s *System) WriteUnit(name, content string) (string, error) {
	p := filepath.Join(s.UnitDir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write unit %s: %w", p, err)
	}
	return p, nil
}

func (s *System) Reload(ctx context.Context) error { return s.run(ctx, "systemctl", "daemon-reload") }

func (s *System) Enable(ctx context.Context, unit string) error {
	return s.run(ctx, "systemctl", "enable", unit)
}

func (s *System) Start(ctx context.Context, unit string) error {
	return s.run(ctx, "systemctl", "start", unit)
}

// asUser wraps c in sudo so it runs with the account's identity. -H sets HOME
// to the account's home directory.
func asUser(user string, c executil.Cmd) executil.Cmd {
	args := []string{"-u", user, "-H", "--"}
	if len(c.Env) > 0 {
		keys := make([]string, 0, len(c.Env))
		for k := range c.Env {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		args = append(args, "env")
		for _, k := range keys {
			args = append(args, k+"="+c.Env[k])
		}
	}
	args = append(args, c.Path)
	args = append(args, c.Args...)
	return executil.Cmd{Path: "sudo", Args: args, Dir: c.Dir, Stdin: c.Stdin}
}

func (s *System) RunAs(ctx context.Context, user string, c executil.Cmd) error {
	return s.Runner.Run(ctx, asUser(user, c))
}

func (s *System) OutputAs(ctx context.Context, user string, c executil.Cmd) ([]byte, error) {
	return s.Runner.Output(ctx, asUser(user, c))
}
