package cli

import (
	"errors"
	"io"
	"os"

	"github.com/spf13/cobra"

	"llmsvc/internal/logx"
)

// Options carries flag values and the streams the interactive flow uses.
type Options struct {
	ConfigPath string
	LogLevel   string
	NoColor    bool
	In         io.Reader
	Out        io.Writer
}

// flagError marks command-line misuse so it maps to exit code 2.
type flagError struct{ err error }

func (e flagError) Error() string { return e.err.Error() }
func (e flagError) Unwrap() error { return e.err }

// buildRootCmd constructs the command tree wired to the fn* actions.
func buildRootCmd(opts *Options) *cobra.Command {
	root := &cobra.Command{
		Use:   "llmsvc",
		Short: "Provision LLM server instances as systemd services",
		Long: "llmsvc prepares a service account, a model storage directory and a Python venv\n" +
			"with the model server tool, then asks which local or hub models to serve and\n" +
			"creates one systemd service per model on consecutive ports.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := fnResolveConfig(opts.ConfigPath)
			if err != nil {
				return err
			}
			return fnProvision(cmd.Context(), cfg, opts)
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return flagError{err} })
	root.PersistentFlags().StringVar(&opts.ConfigPath, "config", logx.EnvStr("LLMSVC_CONFIG", ""), "Config file (.yaml, .yml, .json, .toml); defaults LLMSVC_CONFIG")
	root.PersistentFlags().StringVar(&opts.LogLevel, "log-level", logx.EnvStr("LLMSVC_LOG_LEVEL", "info"), "Log level: debug|info|warn|error (defaults LLMSVC_LOG_LEVEL or info)")
	root.PersistentFlags().BoolVar(&opts.NoColor, "no-color", logx.EnvBool("LLMSVC_NO_COLOR", false), "Disable colored output (defaults LLMSVC_NO_COLOR)")
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		logx.SetLogLevel(opts.LogLevel)
		if opts.NoColor {
			logx.DisableColor()
		}
	}

	// completion command
	completionCmd := &cobra.Command{Use: "completion", Short: "Generate the autocompletion script for the specified shell"}
	completionCmd.AddCommand(&cobra.Command{Use: "bash", Short: "Bash completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenBashCompletion(opts.Out) }})
	completionCmd.AddCommand(&cobra.Command{Use: "zsh", Short: "Zsh completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenZshCompletion(opts.Out) }})
	completionCmd.AddCommand(&cobra.Command{Use: "fish", Short: "Fish completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenFishCompletion(opts.Out, true) }})
	root.AddCommand(completionCmd)

	return root
}

func isFlagError(err error) bool {
	var fe flagError
	return errors.As(err, &fe)
}

func defaultOptions() *Options {
	return &Options{In: os.Stdin, Out: os.Stdout}
}
