// Package host exposes the narrow OS capabilities the provisioner needs:
// managing accounts, files, packages and systemd units, and running commands
// as the service account. System implements all of them with real commands.
package host

import (
	"context"
	"errors"
	"os"

	"llmsvc/internal/executil"
)

var (
	ErrNotRoot        = errors.New("must be run as root (try sudo)")
	ErrMissingCommand = errors.New("required command not found")
)

// Accounts manages system users and groups.
type Accounts interface {
	GroupExists(ctx context.Context, group string) (bool, error)
	CreateGroup(ctx context.Context, group string) error
	UserExists(ctx context.Context, user string) (bool, error)
	CreateUser(ctx context.Context, user, group, home string) error
	SetHome(ctx context.Context, user, home string) error
	AddToGroup(ctx context.Context, user, group string) error
}

// Files changes ownership and permissions of existing paths.
type Files interface {
	Chown(ctx context.Context, path, user, group string, recursive bool) error
	Chmod(ctx context.Context, path string, mode os.FileMode) error
}

// Packages queries and installs distribution packages.
type Packages interface {
	Installed(ctx context.Context, pkg string) (bool, error)
	Install(ctx context.Context, pkgs ...string) error
	// DefaultPackages names what the runtime needs on this distribution.
	DefaultPackages() []string
}

// Units persists and drives systemd units.
type Units interface {
	WriteUnit(name, content string) (string, error)
	Reload(ctx context.Context) error
	Enable(ctx context.Context, unit string) error
	Start(ctx context.Context, unit string) error
}

// AccountRunner runs commands as an unprivileged account.
type AccountRunner interface {
	RunAs(ctx context.Context, user string, c executil.Cmd) error
	OutputAs(ctx context.Context, user string, c executil.Cmd) ([]byte, error)
}
