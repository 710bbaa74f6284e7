// Package prompt provides line-oriented interactive input with validation
// and reprompting. It reads from any io.Reader so flows can be driven by
// scripted input in tests.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	fcolor "github.com/fatih/color"
)

// ErrInputClosed is returned when the input reaches EOF before an answer.
var ErrInputClosed = errors.New("input closed")

// Validator checks an answer; a non-nil error is shown and the question repeated.
type Validator func(string) error

type Prompter struct {
	in    *bufio.Reader
	out   io.Writer
	once  sync.Once
	lines chan readResult
	// sticky read error once the reader is exhausted
	done  error
	label *fcolor.Color
	warn  *fcolor.Color
	err   *fcolor.Color
}

func New(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{
		in:    bufio.NewReader(in),
		out:   out,
		label: fcolor.New(fcolor.Bold),
		warn:  fcolor.New(fcolor.FgYellow),
		err:   fcolor.New(fcolor.FgRed),
	}
}

type readResult struct {
	line string
	err  error
}

// readLoop owns the reader so a cancelled prompt does not lose the line that
// eventually arrives; the next prompt receives it.
func (p *Prompter) readLoop() {
	for {
		line, err := p.in.ReadString('\n')
		p.lines <- readResult{line, err}
		if err != nil {
			close(p.lines)
			return
		}
	}
}

func (p *Prompter) readLine(ctx context.Context) (string, error) {
	if p.done != nil {
		return "", p.done
	}
	p.once.Do(func() {
		p.lines = make(chan readResult, 1)
		go p.readLoop()
	})
	var r readResult
	select {
	case <-ctx.Done():
		fmt.Fprintln(p.out)
		return "", ctx.Err()
	case r = <-p.lines:
	}
	if r.err != nil {
		p.done = r.err
		if errors.Is(r.err, io.EOF) {
			p.done = ErrInputClosed
			if r.line != "" {
				return strings.TrimSpace(r.line), nil
			}
			fmt.Fprintln(p.out)
		}
		return "", p.done
	}
	return strings.TrimSpace(r.line), nil
}

// Ask repeats the question until validate accepts the answer. A cancelled
// ctx abandons the read and returns ctx.Err().
func (p *Prompter) Ask(ctx context.Context, question string, validate Validator) (string, error) {
	return p.AskDefault(ctx, question, "", validate)
}

// AskDefault is Ask where an empty answer means def.
func (p *Prompter) AskDefault(ctx context.Context, question, def string, validate Validator) (string, error) {
	for {
		if def != "" {
			p.label.Fprintf(p.out, "%s [%s]: ", question, def)
		} else {
			p.label.Fprintf(p.out, "%s: ", question)
		}
		ans, err := p.readLine(ctx)
		if err != nil {
			return "", err
		}
		if ans == "" {
			ans = def
		}
		if validate != nil {
			if verr := validate(ans); verr != nil {
				p.Errorf("%v", verr)
				continue
			}
		}
		return ans, nil
	}
}

// Confirm asks a yes/no question. An empty answer means def.
func (p *Prompter) Confirm(ctx context.Context, question string, def bool) (bool, error) {
	hint := "y/N"
	if def {
		hint = "Y/n"
	}
	for {
		p.label.Fprintf(p.out, "%s [%s]: ", question, hint)
		ans, err := p.readLine(ctx)
		if err != nil {
			return false, err
		}
		switch strings.ToLower(ans) {
		case "":
			return def, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		p.Errorf("please answer y or n")
	}
}

// Choose lists options and returns the chosen index. def is the index used
// for an empty answer; pass -1 to require an explicit choice.
func (p *Prompter) Choose(ctx context.Context, question string, options []string, def int) (int, error) {
	if len(options) == 0 {
		return -1, fmt.Errorf("no options for %q", question)
	}
	for i, o := range options {
		fmt.Fprintf(p.out, "  %d) %s\n", i+1, o)
	}
	defStr := ""
	if def >= 0 && def < len(options) {
		defStr = strconv.Itoa(def + 1)
	}
	ans, err := p.AskDefault(ctx, question, defStr, func(s string) error {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > len(options) {
			return fmt.Errorf("enter a number between 1 and %d", len(options))
		}
		return nil
	})
	if err != nil {
		return -1, err
	}
	n, _ := strconv.Atoi(ans)
	return n - 1, nil
}

func (p *Prompter) Printf(format string, a ...any) {
	fmt.Fprintf(p.out, format, a...)
}

func (p *Prompter) Warnf(format string, a ...any) {
	p.warn.Fprint(p.out, "WARN: ")
	fmt.Fprintf(p.out, format+"\n", a...)
}

func (p *Prompter) Errorf(format string, a ...any) {
	p.err.Fprint(p.out, "ERROR: ")
	fmt.Fprintf(p.out, format+"\n", a...)
}

// Out is the writer prompts are printed to.
func (p *Prompter) Out() io.Writer { return p.out }

// NonEmpty rejects blank answers.
func NonEmpty(what string) Validator {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s must not be empty", what)
		}
		return nil
	}
}
