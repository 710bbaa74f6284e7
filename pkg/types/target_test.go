package types

import "testing"

func TestStartArgs(t *testing.T) {
	hub := Target{Kind: KindHub, ServiceID: "org/m", Model: "org/m"}
	if got := hub.StartArgs("--backend"); len(got) != 1 || got[0] != "org/m" {
		t.Fatalf("hub args: %v", got)
	}
	gguf := Target{Kind: KindGGUFFile, ServiceID: "a", Model: "/m/a:b.gguf", Backend: "llamacpp"}
	got := gguf.StartArgs("--backend")
	if len(got) != 3 || got[0] != "/m/a:b.gguf" || got[1] != "--backend" || got[2] != "llamacpp" {
		t.Fatalf("gguf args: %v", got)
	}
	if !gguf.Kind.Local() || hub.Kind.Local() {
		t.Fatalf("Local() classification wrong")
	}
}
