package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/1broseidon/yws/internal/workspace"
)

func newWorkspaceCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "workspace",
		Aliases: []string{"ws"},
		Short:   "Save and restore workspace snapshots",
	}
	cmd.AddCommand(
		newWorkspaceSaveCmd(a),
		newWorkspaceRestoreCmd(a),
		newWorkspaceListCmd(a),
		newWorkspaceShowCmd(a),
		newWorkspaceDeleteCmd(a),
	)
	return cmd
}

// snapshotTarget resolves a name argument or --file flag. Exactly one must be
// given.
func snapshotTarget(args []string, file string) (name string, path string, err error) {
	switch {
	case len(args) == 1 && file != "":
		return "", "", errors.New("pass a workspace name or --file, not both")
	case len(args) == 1:
		if err := workspace.ValidateName(args[0]); err != nil {
			return "", "", err
		}
		return args[0], "", nil
	case file != "":
		return "", file, nil
	default:
		return "", "", errors.New("a workspace name or --file is required")
	}
}

func newWorkspaceSaveCmd(a *app) *cobra.Command {
	var file, description string
	cmd := &cobra.Command{
		Use:   "save [name]",
		Short: "Capture displays, spaces and windows to a snapshot",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, path, err := snapshotTarget(args, file)
			if err != nil {
				return err
			}

			mgr, err := a.manager()
			if err != nil {
				return err
			}
			var meta *workspace.Meta
			if name != "" {
				meta = &workspace.Meta{Name: name, Description: description}
			}
			ws, err := mgr.Save(cmd.Context(), meta)
			if err != nil {
				return fmt.Errorf("failed to save workspace: %w", err)
			}

			if name != "" {
				if err := a.store().Write(name, ws); err != nil {
					return err
				}
				path, _ = a.store().Path(name)
			} else if err := workspace.WriteFile(path, ws); err != nil {
				return err
			}

			fmt.Fprintf(a.out, "Saved %d window(s) on %d space(s) to %s\n", len(ws.Windows), len(ws.Spaces), path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "write the snapshot to this path instead of the workspaces directory")
	cmd.Flags().StringVarP(&description, "description", "d", "", "description stored with a named snapshot")
	return cmd
}

func newWorkspaceRestoreCmd(a *app) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "restore [name]",
		Short: "Rebuild spaces from a snapshot and move windows back",
		Long: `Restore a snapshot.

All spaces are destroyed down to one per display, the recorded spaces are
recreated (on the focused display when their display is gone), recorded
windows are moved back, and handler restore hooks are run.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, path, err := snapshotTarget(args, file)
			if err != nil {
				return err
			}

			var ws *workspace.Workspace
			if name != "" {
				ws, err = a.store().Read(name)
			} else {
				ws, err = workspace.ReadFile(path)
			}
			if err != nil {
				return err
			}

			mgr, err := a.manager()
			if err != nil {
				return err
			}
			if err := mgr.Restore(cmd.Context(), ws); err != nil {
				return fmt.Errorf("failed to restore workspace: %w", err)
			}

			fmt.Fprintf(a.out, "Restored %d space(s) and %d window(s)\n", len(ws.Spaces), len(ws.Windows))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read the snapshot from this path")
	return cmd
}

func newWorkspaceListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved workspaces",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			store := a.store()
			names, err := store.List()
			if err != nil {
				return err
			}
			if len(names) == 0 {
				fmt.Fprintf(a.out, "No saved workspaces in %s\n", store.Dir())
				return nil
			}
			for _, name := range names {
				ws, err := store.Read(name)
				if err != nil {
					a.logger.Warn().Err(err).Str("workspace", name).Msg("unreadable snapshot")
					fmt.Fprintf(a.out, "%s\t(unreadable)\n", name)
					continue
				}
				desc := ""
				if ws.Meta != nil {
					desc = ws.Meta.Description
				}
				fmt.Fprintf(a.out, "%s\t%d spaces\t%d windows\t%s\n", name, len(ws.Spaces), len(ws.Windows), desc)
			}
			return nil
		},
	}
}

func newWorkspaceShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Print a saved workspace snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			path, err := a.store().Path(args[0])
			if err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read workspace %q: %w", args[0], err)
			}
			if _, err := workspace.Decode(data); err != nil {
				return fmt.Errorf("workspace %q: %w", args[0], err)
			}
			_, err = a.out.Write(data)
			return err
		},
	}
}

func newWorkspaceDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a saved workspace snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if err := a.store().Delete(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Deleted workspace %q\n", args[0])
			return nil
		},
	}
}
