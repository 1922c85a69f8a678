package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/steveyegge/maildedup/internal/config"
)

// rootOptions is the state shared by every subcommand
type rootOptions struct {
	configPath string
	verbose    bool

	cfg   config.Config
	fs    afero.Fs
	stdin io.ReadCloser
}

func newRootCmd(fsys afero.Fs, stdin io.ReadCloser) *cobra.Command {
	opts := &rootOptions{fs: fsys, stdin: stdin}

	rootCmd := &cobra.Command{
		Use:   "maildedup",
		Short: "Find and remove duplicate messages in a maildir tree",
		Long: `maildedup walks a maildir tree, fingerprints every message by its
Message-ID, Date and Subject headers, groups identical copies and keeps one
copy per group. Copies from a secondary export (marked by a header such as
X-Gmail-Labels) and copies with extra headers are removed first.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelWarn
			if opts.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))

			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			opts.cfg = cfg
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log debug diagnostics to stderr")

	rootCmd.AddCommand(newScanCmd(opts))
	rootCmd.AddCommand(newCleanCmd(opts))
	rootCmd.AddCommand(newConfigCmd(opts))
	return rootCmd
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: failed to load .env: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(afero.NewOsFs(), os.Stdin).ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
