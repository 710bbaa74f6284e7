// Package provision runs the whole provisioning pipeline: preflight, host
// setup, target collection, service materialization and the final report.
package provision

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"llmsvc/internal/common/netutil"
	"llmsvc/internal/config"
	"llmsvc/internal/executil"
	"llmsvc/internal/host"
	"llmsvc/internal/prompt"
	"llmsvc/internal/setup"
	"llmsvc/internal/target"
	"llmsvc/internal/tool"
	"llmsvc/internal/unit"
	"llmsvc/pkg/types"
)

// Deps are the capabilities the pipeline drives. NewSystemDeps wires the
// real host; tests pass fakes.
type Deps struct {
	Accounts  host.Accounts
	Files     host.Files
	Packages  host.Packages
	Units     host.Units
	Runner    host.AccountRunner
	Prompt    *prompt.Prompter
	Log       zerolog.Logger
	Operator  string
	Preflight func() error
	PortBusy  func(port int) bool
}

// NewSystemDeps builds Deps backed by real commands.
func NewSystemDeps(cfg config.Config, log zerolog.Logger, p *prompt.Prompter) Deps {
	sys := host.NewSystem(executil.NewExecRunner(log.With().Str("component", "exec").Logger()), cfg.UnitDir, host.DetectPackageManager())
	return Deps{
		Accounts:  sys,
		Files:     sys,
		Packages:  sys,
		Units:     sys,
		Runner:    sys,
		Prompt:    p,
		Log:       log,
		Operator:  setup.OperatorFromEnv(),
		Preflight: func() error { return host.Preflight(host.RequiredCommands) },
		PortBusy:  netutil.IsPortBusy,
	}
}

// Summary is what a run produced.
type Summary struct {
	Targets []types.Target
	Results []unit.Result
}

// Run executes the pipeline. Only fatal failures are returned; per-service
// failures are in Summary.Results.
func Run(ctx context.Context, cfg config.Config, d Deps) (Summary, error) {
	var sum Summary
	log := d.Log
	if d.Preflight != nil {
		if err := d.Preflight(); err != nil {
			return sum, fmt.Errorf("preflight: %w", err)
		}
	}

	st := &setup.Setup{
		Cfg: cfg, Accounts: d.Accounts, Files: d.Files, Packages: d.Packages,
		Runner: d.Runner, Log: log.With().Str("stage", "setup").Logger(), Operator: d.Operator,
	}
	if err := st.EnsureIdentity(ctx); err != nil {
		return sum, err
	}
	if err := st.EnsureRuntime(ctx); err != nil {
		return sum, err
	}

	tl := tool.New(d.Runner, cfg)
	coll := target.NewCollection()
	local := &target.LocalFlow{
		Prompt:      d.Prompt,
		CanRead:     readableBy(d.Runner, cfg.User),
		GGUFBackend: cfg.Tool.GGUFBackend,
	}
	if err := local.Run(ctx, coll); err != nil {
		return sum, fmt.Errorf("collect local models: %w", err)
	}
	hub := &target.HubFlow{Prompt: d.Prompt, Lister: tl, GGUFBackend: cfg.Tool.GGUFBackend}
	if err := hub.Run(ctx, coll); err != nil {
		return sum, fmt.Errorf("select hub models: %w", err)
	}
	sum.Targets = coll.Targets()
	if len(sum.Targets) == 0 {
		log.Info().Msg("no models selected, nothing to do")
		return sum, nil
	}

	m := &unit.Materializer{
		Cfg: cfg, Units: d.Units, Tool: tl, PortBusy: d.PortBusy,
		Log: log.With().Str("stage", "services").Logger(),
	}
	results, err := m.Materialize(ctx, sum.Targets)
	sum.Results = results
	if err != nil {
		return sum, err
	}

	Report(d.Prompt.Out(), cfg, results)
	if cfg.MetricsTextfile != "" {
		if err := WriteMetrics(cfg.MetricsTextfile, sum); err != nil {
			log.Warn().Err(err).Str("path", cfg.MetricsTextfile).Msg("could not write metrics textfile")
		}
	}
	return sum, nil
}

func readableBy(r host.AccountRunner, user string) target.ReadCheck {
	return func(ctx context.Context, path string) bool {
		return r.RunAs(ctx, user, executil.Cmd{Path: "test", Args: []string{"-r", path}}) == nil
	}
}
