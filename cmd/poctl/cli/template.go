package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/PPA-BE/Orders-At-Peak/internal/export"
)

func (r *Root) templateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Create or verify the PO spreadsheet template",
	}

	var (
		initPath string
		force    bool
	)
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a blank template matching the cell map",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, cells, err := r.templateSetup(initPath)
			if err != nil {
				return err
			}
			if !force {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("%s already exists, use --force to overwrite", path)
				} else if !errors.Is(err, fs.ErrNotExist) {
					return err
				}
			}
			data, err := export.NewBlankTemplate(cells)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (cell map v%d)\n", path, cells.Version)
			return nil
		},
	}
	initCmd.Flags().StringVar(&initPath, "path", "", "template path (default PO_TEMPLATE_PATH)")
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	var checkPath string
	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Verify the template against the cell map",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, cells, err := r.templateSetup(checkPath)
			if err != nil {
				return err
			}
			if _, err := export.NewTemplateLoader(path, cells).Load(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s matches cell map v%d (sheet %q)\n", path, cells.Version, cells.Sheet)
			return nil
		},
	}
	checkCmd.Flags().StringVar(&checkPath, "path", "", "template path (default PO_TEMPLATE_PATH)")

	cmd.AddCommand(initCmd, checkCmd)
	return cmd
}

func (r *Root) templateSetup(flag string) (string, export.CellMap, error) {
	cfg, err := r.config()
	if err != nil {
		return "", export.CellMap{}, err
	}
	if flag != "" {
		return flag, cfg.CellMap(), nil
	}
	return cfg.TemplatePath, cfg.CellMap(), nil
}
