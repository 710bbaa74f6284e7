package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	fcolor "github.com/fatih/color"
)

// MainWithArgs is a testable variant of Main that accepts args and options
// explicitly. It returns 0 on success, 1 on a fatal error and 2 on misuse.
func MainWithArgs(ctx context.Context, args []string, opts *Options) int {
	root := buildRootCmd(opts)
	root.SetArgs(args)
	root.SetIn(opts.In)
	root.SetOut(opts.Out)
	if err := root.ExecuteContext(ctx); err != nil {
		fcolor.New(fcolor.FgRed).Fprint(os.Stderr, "ERROR: ")
		fmt.Fprintln(os.Stderr, err.Error())
		if isFlagError(err) {
			return 2
		}
		return 1
	}
	return 0
}

// Main returns an exit code for use by cmd/llmsvc. SIGINT and SIGTERM cancel
// the running step.
func Main() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return MainWithArgs(ctx, os.Args[1:], defaultOptions())
}
