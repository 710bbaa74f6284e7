package setup

import (
	"context"
	"fmt"
	"path/filepath"

	"llmsvc/internal/common/fsutil"
	"llmsvc/internal/executil"
	"llmsvc/internal/tool"
)

// EnsureRuntime installs missing system packages, creates the venv once,
// re-asserts its ownership and installs the wrapped tool into it as the
// service account.
func (s *Setup) EnsureRuntime(ctx context.Context) error {
	cfg := s.Cfg
	pkgs := cfg.SystemPackages
	if len(pkgs) == 0 {
		pkgs = s.Packages.DefaultPackages()
	}
	var missing []string
	for _, p := range pkgs {
		ok, err := s.Packages.Installed(ctx, p)
		if err != nil {
			return fmt.Errorf("query package %s: %w", p, err)
		}
		if !ok {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		s.Log.Info().Strs("packages", missing).Msg("installing system packages")
		if err := s.Packages.Install(ctx, missing...); err != nil {
			return fmt.Errorf("install packages: %w", err)
		}
	}

	venv := cfg.VenvDir()
	env := map[string]string{"HOME": cfg.StorageDir}
	if !fsutil.PathExists(filepath.Join(venv, "bin", "python")) {
		s.Log.Info().Str("venv", venv).Msg("creating python venv")
		c := executil.Cmd{Path: "python3", Args: []string{"-m", "venv", venv}, Env: env, Dir: cfg.StorageDir}
		if err := s.Runner.RunAs(ctx, cfg.User, c); err != nil {
			return fmt.Errorf("create venv: %w", err)
		}
	} else {
		s.Log.Debug().Str("venv", venv).Msg("reusing python venv")
	}
	if err := s.Files.Chown(ctx, venv, cfg.User, cfg.Group, true); err != nil {
		return fmt.Errorf("chown venv: %w", err)
	}

	s.Log.Info().Str("package", cfg.Tool.Package).Msg("installing tool into venv")
	pip := executil.Cmd{
		Path: filepath.Join(venv, "bin", "pip"),
		Args: []string{"install", "--upgrade", cfg.Tool.Package},
		Env:  map[string]string{"HOME": cfg.StorageDir, "PATH": filepath.Join(venv, "bin") + ":" + tool.SystemPath, "PIP_DISABLE_PIP_VERSION_CHECK": "1"},
		Dir:  cfg.StorageDir,
	}
	if err := s.Runner.RunAs(ctx, cfg.User, pip); err != nil {
		return fmt.Errorf("install %s: %w", cfg.Tool.Package, err)
	}
	return nil
}
