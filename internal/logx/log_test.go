package logx

import (
	"bytes"
	"os"
	"testing"

	"github.com/rs/zerolog"
)

func TestEnvStr(t *testing.T) {
	key := "LLMSVC_ENV_STR"
	os.Unsetenv(key)
	if got := EnvStr(key, "def"); got != "def" {
		t.Fatalf("EnvStr default: got %q", got)
	}
	t.Setenv(key, "val")
	if got := EnvStr(key, "def"); got != "val" {
		t.Fatalf("EnvStr set: got %q", got)
	}
}

func TestEnvBool(t *testing.T) {
	key := "LLMSVC_ENV_BOOL"
	os.Unsetenv(key)
	if got := EnvBool(key, true); !got {
		t.Fatalf("EnvBool default true -> false")
	}
	if got := EnvBool(key, false); got {
		t.Fatalf("EnvBool default false -> true")
	}
	t.Setenv(key, "1")
	if got := EnvBool(key, false); !got {
		t.Fatalf("EnvBool 1 -> false")
	}
	t.Setenv(key, "yes")
	if got := EnvBool(key, false); !got {
		t.Fatalf("EnvBool yes -> false")
	}
	t.Setenv(key, "no")
	if got := EnvBool(key, true); got {
		t.Fatalf("EnvBool no -> true")
	}
}

func TestEnvInt(t *testing.T) {
	key := "LLMSVC_ENV_INT"
	os.Unsetenv(key)
	if got := EnvInt(key, 7); got != 7 {
		t.Fatalf("EnvInt default -> %d", got)
	}
	t.Setenv(key, "42")
	if got := EnvInt(key, 0); got != 42 {
		t.Fatalf("EnvInt 42 -> %d", got)
	}
	t.Setenv(key, "bad")
	if got := EnvInt(key, 5); got != 5 {
		t.Fatalf("EnvInt bad -> %d", got)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"debug": zerolog.DebugLevel, "INFO": zerolog.InfoLevel, "warning": zerolog.WarnLevel,
		"err": zerolog.ErrorLevel, "bogus": zerolog.InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewWritesComponent(t *testing.T) {
	var buf bytes.Buffer
	old := Output
	Output = &buf
	t.Cleanup(func() { Output = old })
	l := New("setup")
	l.Warn().Msg("hello")
	if !bytes.Contains(buf.Bytes(), []byte(`"component":"setup"`)) {
		t.Fatalf("missing component field: %s", buf.String())
	}
}
