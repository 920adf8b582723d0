package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/1broseidon/yws/internal/config"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration",
	}
	cmd.AddCommand(
		newConfigInitCmd(a),
		&cobra.Command{
			Use:   "validate",
			Short: "Load and validate the configuration",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				// Loading already validated; this only reports what was read.
				if len(a.loaded.Files) == 0 {
					fmt.Fprintf(a.out, "No config file at %s, defaults are valid\n", a.configPath)
					return nil
				}
				for _, f := range a.loaded.Files {
					fmt.Fprintf(a.out, "loaded %s\n", f)
				}
				fmt.Fprintln(a.out, "Config OK")
				return nil
			},
		},
		&cobra.Command{
			Use:   "print",
			Short: "Print the effective configuration as YAML",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				data, err := a.cfg.Marshal()
				if err != nil {
					return err
				}
				_, err = a.out.Write(data)
				return err
			},
		},
		&cobra.Command{
			Use:   "explain <path>",
			Short: "Show an effective value and where it was set",
			Example: `  yws config explain byte_order
  yws config explain layouts.3`,
			Args: cobra.ExactArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				value, src, err := config.Explain(a.loaded, args[0])
				if err != nil {
					return err
				}
				data, err := yaml.Marshal(map[string]any{args[0]: value})
				if err != nil {
					return fmt.Errorf("failed to encode value: %w", err)
				}
				fmt.Fprint(a.out, string(data))
				switch src.Kind {
				case config.SourceFile:
					fmt.Fprintf(a.out, "# set in %s:%d:%d\n", src.File, src.Line, src.Column)
				default:
					fmt.Fprintf(a.out, "# %s\n", src.Name)
				}
				return nil
			},
		},
	)
	return cmd
}

func newConfigInitCmd(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration to the config path",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			if _, err := os.Stat(a.configPath); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", a.configPath)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
			if err := config.DefaultConfig().Save(a.configPath); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Wrote %s\n", a.configPath)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}
