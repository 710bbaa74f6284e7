// Package setup prepares the host: the service account and group, the model
// storage directory and the Python venv holding the wrapped tool. Every step
// reconciles existing state so re-running is safe.
package setup

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"llmsvc/internal/config"
	"llmsvc/internal/host"
)

type Setup struct {
	Cfg      config.Config
	Accounts host.Accounts
	Files    host.Files
	Packages host.Packages
	Runner   host.AccountRunner
	Log      zerolog.Logger
	// Operator is the human account added to the service group; empty skips it.
	Operator string
}

// OperatorFromEnv returns the account that invoked sudo, if any.
func OperatorFromEnv() string {
	u := os.Getenv("SUDO_USER")
	if u == "root" {
		return ""
	}
	return u
}

// EnsureIdentity creates or reconciles the service group, the service account
// and the storage directory.
func (s *Setup) EnsureIdentity(ctx context.Context) error {
	cfg := s.Cfg
	ok, err := s.Accounts.GroupExists(ctx, cfg.Group)
	if err != nil {
		return fmt.Errorf("check group %s: %w", cfg.Group, err)
	}
	if !ok {
		s.Log.Info().Str("group", cfg.Group).Msg("creating system group")
		if err := s.Accounts.CreateGroup(ctx, cfg.Group); err != nil {
			return fmt.Errorf("create group %s: %w", cfg.Group, err)
		}
	}

	ok, err = s.Accounts.UserExists(ctx, cfg.User)
	if err != nil {
		return fmt.Errorf("check user %s: %w", cfg.User, err)
	}
	if !ok {
		s.Log.Info().Str("user", cfg.User).Str("home", cfg.StorageDir).Msg("creating system user")
		if err := s.Accounts.CreateUser(ctx, cfg.User, cfg.Group, cfg.StorageDir); err != nil {
			return fmt.Errorf("create user %s: %w", cfg.User, err)
		}
	} else {
		s.Log.Debug().Str("user", cfg.User).Msg("user exists, reconciling home directory")
		if err := s.Accounts.SetHome(ctx, cfg.User, cfg.StorageDir); err != nil {
			return fmt.Errorf("set home of %s: %w", cfg.User, err)
		}
	}
	// the primary group of a pre-existing account may differ
	if err := s.Accounts.AddToGroup(ctx, cfg.User, cfg.Group); err != nil {
		return fmt.Errorf("add %s to %s: %w", cfg.User, cfg.Group, err)
	}

	mode, err := cfg.Mode()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.StorageDir, mode); err != nil {
		return fmt.Errorf("create storage dir: %w", err)
	}
	if err := s.Files.Chown(ctx, cfg.StorageDir, cfg.User, cfg.Group, false); err != nil {
		return fmt.Errorf("chown storage dir: %w", err)
	}
	if err := s.Files.Chmod(ctx, cfg.StorageDir, mode); err != nil {
		return fmt.Errorf("chmod storage dir: %w", err)
	}

	if s.Operator != "" && s.Operator != cfg.User {
		if err := s.Accounts.AddToGroup(ctx, s.Operator, cfg.Group); err != nil {
			return fmt.Errorf("add %s to %s: %w", s.Operator, cfg.Group, err)
		}
		s.Log.Info().Str("operator", s.Operator).Str("group", cfg.Group).
			Msg("operator added to service group; log in again for it to take effect")
	}
	return nil
}
