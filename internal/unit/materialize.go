package unit

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"llmsvc/internal/config"
	"llmsvc/internal/host"
	"llmsvc/internal/target"
	"llmsvc/pkg/types"
)

// Tool is the part of the wrapped tool the materializer needs.
type Tool interface {
	Import(ctx context.Context, t types.Target) error
	StartCommand(t types.Target, port int) []string
	PathEnv() string
}

// Stage names the step a service failed at.
type Stage string

const (
	StageImport Stage = "import"
	StageReload Stage = "reload"
	StageEnable Stage = "enable"
	StageStart  Stage = "start"
)

// Result is the outcome for one target.
type Result struct {
	Target types.Target
	Port   int
	Unit   string
	Path   string
	// Started is true when systemd reported the unit as started.
	Started bool
	// PortInUse is set when another process already listened on Port.
	PortInUse bool
	Stage     Stage
	Err       error
}

type Materializer struct {
	Cfg   config.Config
	Units host.Units
	Tool  Tool
	Log   zerolog.Logger
	// PortBusy, when set, is consulted before a unit is written. A busy port
	// only produces a warning; assignments never shift.
	PortBusy func(port int) bool
}

// Spec builds the unit description for t served on port.
func (m *Materializer) Spec(t types.Target, port int) Spec {
	return Spec{
		Description: fmt.Sprintf("LLM server %s (%s) on port %d", t.ServiceID, t.Kind, port),
		User:        m.Cfg.User,
		Group:       m.Cfg.Group,
		WorkingDir:  m.Cfg.StorageDir,
		Env: []EnvVar{
			{"HOME", m.Cfg.StorageDir},
			{"PATH", m.Tool.PathEnv()},
			{"HF_HUB_OFFLINE", "1"},
			{"TRANSFORMERS_OFFLINE", "1"},
		},
		ExecStart:  m.Tool.StartCommand(t, port),
		RestartSec: m.Cfg.RestartSec,
	}
}

// Materialize writes, enables and starts one unit per target, in order. Ports
// are base_port+i whatever happens to earlier targets. Per-service failures
// are recorded in the result and do not stop the run; a unit that cannot be
// rendered or written is fatal.
func (m *Materializer) Materialize(ctx context.Context, targets []types.Target) ([]Result, error) {
	results := make([]Result, 0, len(targets))
	port := m.Cfg.BasePort
	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		r, err := m.one(ctx, t, port)
		results = append(results, r)
		if err != nil {
			return results, err
		}
		port++
	}
	return results, nil
}

func (m *Materializer) one(ctx context.Context, t types.Target, port int) (Result, error) {
	r := Result{Target: t, Port: port, Unit: target.UnitName(m.Cfg.UnitPrefix, t.ServiceID)}
	log := m.Log.With().Str("service", t.ServiceID).Str("unit", r.Unit).Int("port", port).Logger()
	if m.PortBusy != nil && m.PortBusy(port) {
		r.PortInUse = true
		log.Warn().Msg("port already has a listener; the service may fail to bind unless it is an earlier instance of this unit")
	}

	content, err := Render(m.Spec(t, port))
	if err != nil {
		return r, fmt.Errorf("render %s: %w", r.Unit, err)
	}
	if r.Path, err = m.Units.WriteUnit(r.Unit, content); err != nil {
		return r, err
	}
	log.Info().Str("path", r.Path).Msg("unit written")

	fail := func(stage Stage, err error) (Result, error) {
		r.Stage, r.Err = stage, err
		log.Warn().Err(err).Str("stage", string(stage)).
			Msgf("service not started; check 'journalctl -u %s' and 'systemctl status %s'", r.Unit, r.Unit)
		return r, nil
	}
	if t.Kind.Local() {
		if err := m.Tool.Import(ctx, t); err != nil {
			return fail(StageImport, err)
		}
	}
	if err := m.Units.Reload(ctx); err != nil {
		return fail(StageReload, err)
	}
	if err := m.Units.Enable(ctx, r.Unit); err != nil {
		return fail(StageEnable, err)
	}
	if err := m.Units.Start(ctx, r.Unit); err != nil {
		return fail(StageStart, err)
	}
	r.Started = true
	log.Info().Msg("service started on port " + strconv.Itoa(port))
	return r, nil
}
