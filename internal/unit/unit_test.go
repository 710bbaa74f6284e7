package unit

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"llmsvc/internal/config"
	"llmsvc/internal/executil"
	"llmsvc/internal/host"
	"llmsvc/internal/tool"
	"llmsvc/pkg/types"
)

func TestRender_ExactUnit(t *testing.T) {
	got, err := Render(Spec{
		Description: "LLM server alpha (gguf-file) on port 3000",
		User:        "llmsvc",
		Group:       "llmsvc",
		WorkingDir:  "/var/lib/llmsvc",
		Env: []EnvVar{
			{"HOME", "/var/lib/llmsvc"},
			{"PATH", "/var/lib/llmsvc/.venv/bin:/usr/bin"},
			{"HF_HUB_OFFLINE", "1"},
			{"TRANSFORMERS_OFFLINE", "1"},
		},
		ExecStart:  []string{"/var/lib/llmsvc/.venv/bin/llm-serve", "start", "/models/a.gguf", "--backend", "llamacpp", "--port", "3000"},
		RestartSec: 5,
	})
	require.NoError(t, err)
	want := `[Unit]
Description=LLM server alpha (gguf-file) on port 3000
After=network-online.target
Wants=network-online.target

[Service]
Type=simple
User=llmsvc
Group=llmsvc
WorkingDirectory=/var/lib/llmsvc
Environment="HOME=/var/lib/llmsvc"
Environment="PATH=/var/lib/llmsvc/.venv/bin:/usr/bin"
Environment="HF_HUB_OFFLINE=1"
Environment="TRANSFORMERS_OFFLINE=1"
ExecStart=/var/lib/llmsvc/.venv/bin/llm-serve start /models/a.gguf --backend llamacpp --port 3000
Restart=always
RestartSec=5

[Install]
WantedBy=multi-user.target
`
	assert.Equal(t, want, got)
}

func TestRender_GroupDefaultsToUser(t *testing.T) {
	got, err := Render(Spec{User: "svc", WorkingDir: "/w", ExecStart: []string{"/bin/x"}})
	require.NoError(t, err)
	assert.Contains(t, got, "\nGroup=svc\n")
}

func TestExecArgQuoting(t *testing.T) {
	assert.Equal(t, "/models/a:b.gguf", execArg("/models/a:b.gguf"))
	assert.Equal(t, `"/models/my model.gguf"`, execArg("/models/my model.gguf"))
	assert.Equal(t, `"say \"hi\""`, execArg(`say "hi"`))
	assert.Equal(t, "100%%", execArg("100%"))
	assert.Equal(t, `""`, execArg(""))
	assert.Equal(t, `";"`, execArg(";"))
	assert.Equal(t, "/models/$$HOME/$${x}", execArg("/models/$HOME/${x}"))
	assert.Equal(t, `"/m/$${VAR} a"`, execArg("/m/${VAR} a"))
	assert.Equal(t, `a\"b%%`, envValue(`a"b%`))
}

// fakeUnits records systemd interactions.
type fakeUnits struct {
	written    map[string]string
	calls      []string
	failStart  map[string]bool
	failWrite  bool
	failReload bool
}

func (f *fakeUnits) WriteUnit(name, content string) (string, error) {
	if f.failWrite {
		return "", errors.New("read-only file system")
	}
	if f.written == nil {
		f.written = map[string]string{}
	}
	f.written[name] = content
	f.calls = append(f.calls, "write "+name)
	return "/etc/systemd/system/" + name, nil
}
func (f *fakeUnits) Reload(context.Context) error {
	f.calls = append(f.calls, "reload")
	if f.failReload {
		return errors.New("reload failed")
	}
	return nil
}
func (f *fakeUnits) Enable(_ context.Context, u string) error {
	f.calls = append(f.calls, "enable "+u)
	return nil
}
func (f *fakeUnits) Start(_ context.Context, u string) error {
	f.calls = append(f.calls, "start "+u)
	if f.failStart[u] {
		return fmt.Errorf("start %s: exit status 1", u)
	}
	return nil
}

func newMaterializer(units host.Units, rec *executil.Recorder) *Materializer {
	cfg := config.Default()
	cfg.BasePort = 3000
	return &Materializer{
		Cfg:   cfg,
		Units: units,
		Tool:  tool.New(host.NewSystem(rec, "", host.PackageManager{}), cfg),
		Log:   zerolog.Nop(),
	}
}

func TestMaterialize_TwoTargetsSequentialPorts(t *testing.T) {
	units := &fakeUnits{}
	rec := &executil.Recorder{}
	m := newMaterializer(units, rec)
	targets := []types.Target{
		{Kind: types.KindHFDir, ServiceID: "alpha", Model: "/models/alpha"},
		{Kind: types.KindHub, ServiceID: "beta", Model: "beta"},
	}
	res, err := m.Materialize(context.Background(), targets)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, 3000, res[0].Port)
	assert.Equal(t, 3001, res[1].Port)
	assert.True(t, res[0].Started)
	assert.True(t, res[1].Started)
	assert.Equal(t, []string{
		"write llmsvc-alpha.service", "reload", "enable llmsvc-alpha.service", "start llmsvc-alpha.service",
		"write llmsvc-beta.service", "reload", "enable llmsvc-beta.service", "start llmsvc-beta.service",
	}, units.calls)
	assert.Contains(t, units.written["llmsvc-alpha.service"], "start /models/alpha --port 3000\n")
	assert.Contains(t, units.written["llmsvc-beta.service"], "start beta --port 3001\n")
	// only the local target is imported
	require.Len(t, rec.Lines(), 1)
	assert.Contains(t, rec.Lines()[0], "import alpha /models/alpha")
}

func TestMaterialize_FailuresDoNotShiftPorts(t *testing.T) {
	units := &fakeUnits{failStart: map[string]bool{"llmsvc-b.service": true}}
	rec := &executil.Recorder{}
	rec.On("sudo", "", errors.New("exit status 1")) // every import fails
	m := newMaterializer(units, rec)
	targets := []types.Target{
		{Kind: types.KindHub, ServiceID: "a", Model: "a"},
		{Kind: types.KindHub, ServiceID: "b", Model: "b"},
		{Kind: types.KindGGUFFile, ServiceID: "c", Model: "/m/c.gguf", Backend: "llamacpp"},
		{Kind: types.KindHub, ServiceID: "org/d", Model: "org/d"},
	}
	res, err := m.Materialize(context.Background(), targets)
	require.NoError(t, err)
	require.Len(t, res, 4)
	for i, r := range res {
		assert.Equal(t, 3000+i, r.Port)
	}
	assert.True(t, res[0].Started)
	assert.False(t, res[1].Started)
	assert.Equal(t, StageStart, res[1].Stage)
	assert.False(t, res[2].Started)
	assert.Equal(t, StageImport, res[2].Stage)
	assert.True(t, res[3].Started)
	assert.Equal(t, "llmsvc-org-d.service", res[3].Unit)
}

func TestMaterialize_ReloadFailureIsRecorded(t *testing.T) {
	units := &fakeUnits{failReload: true}
	m := newMaterializer(units, &executil.Recorder{})
	res, err := m.Materialize(context.Background(), []types.Target{{Kind: types.KindHub, ServiceID: "a", Model: "a"}})
	require.NoError(t, err)
	assert.Equal(t, StageReload, res[0].Stage)
	assert.NotContains(t, units.calls, "start llmsvc-a.service")
}

func TestMaterialize_WriteFailureIsFatal(t *testing.T) {
	units := &fakeUnits{failWrite: true}
	m := newMaterializer(units, &executil.Recorder{})
	res, err := m.Materialize(context.Background(), []types.Target{
		{Kind: types.KindHub, ServiceID: "a", Model: "a"},
		{Kind: types.KindHub, ServiceID: "b", Model: "b"},
	})
	require.Error(t, err)
	assert.Len(t, res, 1)
	assert.Empty(t, units.calls)
}

func TestMaterialize_NoTargetsNoCalls(t *testing.T) {
	units := &fakeUnits{}
	rec := &executil.Recorder{}
	res, err := newMaterializer(units, rec).Materialize(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, res)
	assert.Empty(t, units.calls)
	assert.Empty(t, rec.Calls)
}

func TestMaterialize_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	units := &fakeUnits{}
	_, err := newMaterializer(units, &executil.Recorder{}).Materialize(ctx, []types.Target{{Kind: types.KindHub, ServiceID: "a", Model: "a"}})
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, units.calls)
}

func TestMaterialize_BusyPortWarnsWithoutShifting(t *testing.T) {
	units := &fakeUnits{}
	m := newMaterializer(units, &executil.Recorder{})
	m.PortBusy = func(p int) bool { return p == 3000 }
	res, err := m.Materialize(context.Background(), []types.Target{
		{Kind: types.KindHub, ServiceID: "a", Model: "a"},
		{Kind: types.KindHub, ServiceID: "b", Model: "b"},
	})
	require.NoError(t, err)
	assert.True(t, res[0].PortInUse)
	assert.True(t, res[0].Started)
	assert.False(t, res[1].PortInUse)
	assert.Equal(t, 3001, res[1].Port)
}
