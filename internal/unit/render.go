// Package unit renders systemd service units for targets and drives them
// through write, reload, enable and start.
package unit

import (
	"bytes"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// EnvVar is one Environment= line; order is preserved in the unit.
type EnvVar struct {
	Key   string
	Value string
}

// Spec is everything a rendered unit depends on.
type Spec struct {
	Description string
	User        string
	Group       string
	WorkingDir  string
	Env         []EnvVar
	ExecStart   []string
	RestartSec  int
}

const unitTemplate = `[Unit]
Description={{ .Description | trim | escape }}
After=network-online.target
Wants=network-online.target

[Service]
Type=simple
User={{ .User }}
Group={{ .Group | default .User }}
WorkingDirectory={{ .WorkingDir | escape }}
{{- range .Env }}
Environment="{{ .Key }}={{ .Value | envValue }}"
{{- end }}
ExecStart={{ .ExecStart | execLine }}
Restart=always
RestartSec={{ .RestartSec }}

[Install]
WantedBy=multi-user.target
`

var tmpl = template.Must(template.New("unit").
	Option("missingkey=error").
	Funcs(sprig.TxtFuncMap()).
	Funcs(template.FuncMap{
		"escape":   escapeSpecifiers,
		"envValue": envValue,
		"execLine": execLine,
	}).
	Parse(unitTemplate))

// Render produces the unit file contents for s.
func Render(s Spec) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, s); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// escapeSpecifiers doubles '%' so systemd does not expand specifiers.
func escapeSpecifiers(s string) string { return strings.ReplaceAll(s, "%", "%%") }

func envValue(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return escapeSpecifiers(s)
}

func execLine(argv []string) string {
	out := make([]string, len(argv))
	for i, a := range argv {
		out[i] = execArg(a)
	}
	return strings.Join(out, " ")
}

// execArg quotes a single ExecStart argument when systemd would otherwise
// split or reinterpret it. '$' is doubled so $VAR and ${VAR} stay literal.
func execArg(a string) string {
	a = strings.ReplaceAll(escapeSpecifiers(a), "$", "$$")
	if a != "" && a != ";" && !strings.ContainsAny(a, " \t\n\"'\\") {
		return a
	}
	a = strings.ReplaceAll(a, `\`, `\\`)
	a = strings.ReplaceAll(a, `"`, `\"`)
	a = strings.ReplaceAll(a, "\n", `\n`)
	return `"` + a + `"`
}
