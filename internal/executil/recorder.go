package executil

import (
	"context"
	"strings"
	"sync"
)

// Recorder is a Runner that records commands instead of executing them.
// Responses are matched by command-line prefix; unmatched commands succeed
// with empty output.
type Recorder struct {
	mu        sync.Mutex
	Calls     []Cmd
	responses []response
}

type response struct {
	prefix string
	out    []byte
	err    error
}

// On registers the output and error returned for commands whose String()
// starts with prefix. Later registrations win.
func (r *Recorder) On(prefix string, out string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses = append(r.responses, response{prefix: prefix, out: []byte(out), err: err})
}

func (r *Recorder) match(c Cmd) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls = append(r.Calls, c)
	line := c.String()
	for i := len(r.responses) - 1; i >= 0; i-- {
		if strings.HasPrefix(line, r.responses[i].prefix) {
			return r.responses[i].out, r.responses[i].err
		}
	}
	return nil, nil
}

func (r *Recorder) Run(_ context.Context, c Cmd) error {
	_, err := r.match(c)
	return err
}

func (r *Recorder) Output(_ context.Context, c Cmd) ([]byte, error) {
	return r.match(c)
}

// Lines returns every recorded command line in call order.
func (r *Recorder) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.Calls))
	for _, c := range r.Calls {
		out = append(out, c.String())
	}
	return out
}
