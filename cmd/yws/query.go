package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/1broseidon/yws/internal/platform"
)

func newQueryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "query <displays|spaces|windows>",
		Short:     "Print decoded daemon state as JSON",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"displays", "spaces", "windows"},
		RunE: func(_ *cobra.Command, args []string) error {
			backend, err := a.backend()
			if err != nil {
				return err
			}

			var v any
			switch args[0] {
			case "displays":
				v, err = backend.Displays()
			case "spaces":
				v, err = backend.Spaces()
			case "windows":
				v, err = backend.Windows()
			}
			if err != nil {
				return err
			}
			return writeJSON(a, v)
		},
	}
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check the daemon connection and summarise its state",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			backend, err := a.backend()
			if err != nil {
				return err
			}
			displays, err := backend.Displays()
			if err != nil {
				return err
			}
			spaces, err := backend.Spaces()
			if err != nil {
				return err
			}
			windows, err := backend.Windows()
			if err != nil {
				return err
			}

			focused := 0
			for _, s := range spaces {
				if s.HasFocus {
					focused = s.Index
					break
				}
			}

			fmt.Fprintln(a.out, "Daemon:         reachable")
			if a.socket != "" {
				fmt.Fprintf(a.out, "Socket:         %s\n", a.socket)
			}
			fmt.Fprintf(a.out, "Displays:       %d\n", len(displays))
			fmt.Fprintf(a.out, "Spaces:         %d\n", len(spaces))
			fmt.Fprintf(a.out, "Windows:        %d\n", len(windows))
			if focused > 0 {
				fmt.Fprintf(a.out, "Focused space:  %d\n", focused)
			}
			if layouts, err := a.cfg.ParsedLayouts(); err == nil && len(layouts) > 0 {
				missing := 0
				for index := range layouts {
					if _, ok := platform.SpaceByIndex(spaces, index); !ok {
						missing++
					}
				}
				fmt.Fprintf(a.out, "Layouts:        %d configured, %d for missing spaces\n", len(layouts), missing)
			}
			return nil
		},
	}
}

func writeJSON(a *app, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	data = append(data, '\n')
	_, err = a.out.Write(data)
	return err
}
