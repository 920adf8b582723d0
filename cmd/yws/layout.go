package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/1broseidon/yws/internal/platform"
	"github.com/1broseidon/yws/internal/tiling"
)

func newLayoutCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Apply layouts to spaces",
	}
	cmd.AddCommand(newLayoutApplyCmd(a), newLayoutShowCmd(a))
	return cmd
}

type layoutApplyOptions struct {
	file   string
	dryRun bool
}

func newLayoutApplyCmd(a *app) *cobra.Command {
	var opts layoutApplyOptions
	cmd := &cobra.Command{
		Use:   "apply [mapping]",
		Short: "Apply a space-index to layout mapping",
		Long: `Apply layouts to spaces.

The mapping is JSON (comments and trailing commas allowed), given inline, with
--file, or on stdin with --file -:

  {"spaces": {"3": {"layout_type": "columns", "col_count": 3},
              "4": {"layout_type": "stack_beside_rows",
                    "app_stack_priority": ["Code"], "secondary_row_count": 2}}}

Without a mapping, the layouts section of the config file is applied.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			layouts, err := a.readLayouts(cmd.InOrStdin(), opts.file, args)
			if err != nil {
				return err
			}
			if opts.dryRun {
				return a.planLayouts(layouts)
			}
			return a.applyLayouts(layouts)
		},
	}
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "read the mapping from a file (- for stdin)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "print the commands without running them")
	return cmd
}

func (a *app) readLayouts(stdin io.Reader, file string, args []string) (map[int]tiling.Layout, error) {
	if file != "" && len(args) > 0 {
		return nil, errors.New("pass the mapping inline or with --file, not both")
	}

	var data []byte
	switch {
	case len(args) == 1:
		data = []byte(args[0])
	case file == "-":
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		data = b
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read layout mapping: %w", err)
		}
		data = b
	default:
		layouts, err := a.cfg.ParsedLayouts()
		if err != nil {
			return nil, err
		}
		if len(layouts) == 0 {
			return nil, errors.New("no layout mapping given and no layouts configured")
		}
		return layouts, nil
	}
	return tiling.ParseMapping(data)
}

func (a *app) applyLayouts(layouts map[int]tiling.Layout) error {
	engine, err := a.engine()
	if err != nil {
		return err
	}
	if err := engine.ApplyAll(layouts); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Applied layouts to %d space(s)\n", len(layouts))
	return nil
}

func (a *app) planLayouts(layouts map[int]tiling.Layout) error {
	backend, err := a.backend()
	if err != nil {
		return err
	}
	engine := tiling.NewEngine(backend, a.logger.Logger)
	spaces, err := backend.Spaces()
	if err != nil {
		return fmt.Errorf("failed to query spaces: %w", err)
	}

	indexes := make([]int, 0, len(layouts))
	for index := range layouts {
		indexes = append(indexes, index)
	}
	slices.Sort(indexes)

	for _, index := range indexes {
		space, ok := platform.SpaceByIndex(spaces, index)
		if !ok {
			a.logger.Warn().Int("space", index).Msg("no such space, skipping layout")
			continue
		}
		cmds, err := engine.Plan(layouts[index], space)
		if err != nil {
			return fmt.Errorf("space %d: %w", index, err)
		}
		fmt.Fprintf(a.out, "# space %d: %s\n", index, layouts[index].Type())
		for _, c := range cmds {
			fmt.Fprintln(a.out, strings.Join(c, " "))
		}
	}
	return nil
}

// newLayoutShowCmd prints the configured layouts as a mapping document that
// `layout apply --file` accepts.
func newLayoutShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the configured layouts as a mapping",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			layouts, err := a.cfg.ParsedLayouts()
			if err != nil {
				return err
			}
			spaces := make(map[string]map[string]any, len(layouts))
			for index, l := range layouts {
				spaces[strconv.Itoa(index)] = tiling.Spec(l)
			}
			return writeJSON(a, map[string]any{"spaces": spaces})
		},
	}
}
