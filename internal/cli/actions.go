package cli

import (
	"context"

	"llmsvc/internal/config"
	"llmsvc/internal/logx"
	"llmsvc/internal/prompt"
	"llmsvc/internal/provision"
)

// Indirection layer to allow stubbing in tests

var (
	fnResolveConfig = config.Resolve
	fnProvision     = provisionHost
)

func provisionHost(ctx context.Context, cfg config.Config, opts *Options) error {
	log := logx.New("llmsvc")
	p := prompt.New(opts.In, opts.Out)
	log.Info().Str("storage", cfg.StorageDir).Str("user", cfg.User).Int("base_port", cfg.BasePort).Msg("provisioning")
	_, err := provision.Run(ctx, cfg, provision.NewSystemDeps(cfg, log, p))
	return err
}
