package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newConfigCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Long: `Print the configuration after applying defaults, the --config file and
MAILDEDUP_* environment variables, in a form usable as a --config file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := opts.cfg.Marshal()
			if err != nil {
				return fmt.Errorf("encoding configuration: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
