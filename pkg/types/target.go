package types

// Kind classifies where a target's model comes from.
type Kind string

const (
	KindGGUFFile Kind = "gguf-file" // local single-file GGUF import
	KindHFDir    Kind = "hf-dir"    // local Hugging Face style directory import
	KindHub      Kind = "hub"       // identifier resolved by the tool against the remote hub
)

func (k Kind) Local() bool { return k == KindGGUFFile || k == KindHFDir }

func (k Kind) String() string { return string(k) }

// Target is one model the operator selected to run as its own service.
// It is immutable once appended to a collection.
type Target struct {
	Kind      Kind   `json:"kind"`
	ServiceID string `json:"service_id"`
	// Model is an absolute local path for local kinds, the hub identifier otherwise.
	Model string `json:"model"`
	// Backend is an optional runtime hint, e.g. the GGUF loader tag.
	Backend string `json:"backend,omitempty"`
}

// StartArgs returns the arguments that follow "<tool> start" to select the
// model, without the port.
func (t Target) StartArgs(backendFlag string) []string {
	args := []string{t.Model}
	if t.Backend != "" && backendFlag != "" {
		args = append(args, backendFlag, t.Backend)
	}
	return args
}
