package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vango-dev/vtree/internal/config"
	"github.com/vango-dev/vtree/internal/errors"
)

func configCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or create vtree.json",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write vtree.json with the default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := filepath.Join(g.configDir, config.ConfigFileName)
			if _, err := os.Stat(path); err == nil && !force {
				return errors.New(errors.ECodeConfigInvalid).
					WithDetail(path + " already exists").
					WithSuggestion("Pass --force to overwrite it")
			}
			if err := config.New().SaveTo(path); err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Wrote %s", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing vtree.json")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := json.MarshalIndent(g.cfg, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\n", data)
			return err
		},
	}

	cmd.AddCommand(initCmd, showCmd)
	return cmd
}
