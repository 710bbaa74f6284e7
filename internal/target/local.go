package target

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"llmsvc/internal/common/fsutil"
	"llmsvc/internal/prompt"
	"llmsvc/pkg/types"
)

// ReadCheck reports whether the service account can read path.
type ReadCheck func(ctx context.Context, path string) bool

// LocalFlow asks the operator for local model files and directories.
type LocalFlow struct {
	Prompt      *prompt.Prompter
	CanRead     ReadCheck
	GGUFBackend string
}

var kindOptions = []string{
	"GGUF model file (single .gguf file)",
	"Hugging Face model directory (format auto-detected)",
}

// Run appends local targets to c until the operator is done. Closed input
// ends the flow without error; a half-entered target is dropped.
func (f *LocalFlow) Run(ctx context.Context, c *Collection) error {
	ok, err := f.Prompt.Confirm(ctx, "Import local model files or directories?", false)
	if err != nil || !ok {
		return ignoreClosed(err)
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		t, err := f.one(ctx, c)
		if err != nil {
			return ignoreClosed(err)
		}
		if err := c.Add(t); err != nil {
			return err
		}
		f.Prompt.Printf("Added %s target %q (%s)\n", t.Kind, t.ServiceID, t.Model)
		more, err := f.Prompt.Confirm(ctx, "Add another local model?", false)
		if err != nil || !more {
			return ignoreClosed(err)
		}
	}
}

func (f *LocalFlow) one(ctx context.Context, c *Collection) (types.Target, error) {
	id, err := f.Prompt.Ask(ctx, "Service id", func(s string) error {
		if s == "" {
			return errors.New("service id must not be empty")
		}
		return c.CheckID(s)
	})
	if err != nil {
		return types.Target{}, err
	}
	for {
		path, err := f.Prompt.Ask(ctx, "Model path", validPath)
		if err != nil {
			return types.Target{}, err
		}
		path, _ = resolvePath(path)
		if f.CanRead != nil && !f.CanRead(ctx, path) {
			f.Prompt.Warnf("the service account may not be able to read %s; fix permissions before the service starts", path)
		}
		idx, err := f.Prompt.Choose(ctx, "Model type", kindOptions, defaultKind(path))
		if err != nil {
			return types.Target{}, err
		}
		t := types.Target{ServiceID: id, Model: path}
		switch idx {
		case 0:
			if !fsutil.IsRegular(path) {
				f.Prompt.Errorf("%s is not a regular file; a GGUF model must be a single file", path)
				continue
			}
			t.Kind, t.Backend = types.KindGGUFFile, f.GGUFBackend
		case 1:
			if !fsutil.IsDir(path) {
				f.Prompt.Errorf("%s is not a directory; a Hugging Face model must be a directory", path)
				continue
			}
			t.Kind = types.KindHFDir
		}
		return t, nil
	}
}

func resolvePath(p string) (string, error) {
	p, err := fsutil.ExpandHome(strings.TrimSpace(p))
	if err != nil {
		return "", err
	}
	return filepath.Abs(p)
}

func validPath(s string) error {
	if s == "" {
		return errors.New("path must not be empty")
	}
	p, err := resolvePath(s)
	if err != nil {
		return err
	}
	if !fsutil.PathExists(p) {
		return fmt.Errorf("%s does not exist", p)
	}
	return nil
}

// defaultKind suggests a classification from what is on disk.
func defaultKind(path string) int {
	if fsutil.IsRegular(path) && strings.HasSuffix(strings.ToLower(path), ".gguf") {
		return 0
	}
	if fsutil.IsDir(path) && !fsutil.HasGGUF(path) {
		return 1
	}
	return -1
}

func ignoreClosed(err error) error {
	if errors.Is(err, prompt.ErrInputClosed) {
		return nil
	}
	return err
}
