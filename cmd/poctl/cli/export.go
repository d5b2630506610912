package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/PPA-BE/Orders-At-Peak/internal/export"
)

func (r *Root) exportCommand() *cobra.Command {
	var (
		id, file, out string
		refresh       bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render a PO workbook from the template",
		Example: `  # Stored PO, written to <id>.xlsx
  poctl export --id 3f1c...

  # Payload file, written to stdout
  poctl export --file po.json --out - > po.xlsx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkSource(id, file); err != nil {
				return err
			}
			ctx := cmd.Context()
			var res export.Result
			if id != "" {
				svc, done, err := r.services(ctx)
				if err != nil {
					return err
				}
				defer done()
				if refresh {
					if err := svc.Export.Invalidate(ctx, id); err != nil {
						return err
					}
				}
				res, err = svc.Export.ExportByID(ctx, id)
				if err != nil {
					return err
				}
			} else {
				doc, err := r.readDocument(file)
				if err != nil {
					return err
				}
				cfg, err := r.config()
				if err != nil {
					return err
				}
				svc := export.NewService(nil,
					export.NewTemplateLoader(cfg.TemplatePath, cfg.CellMap()),
					export.NewProjector(cfg.TaxRate, nil), nil, nil, r.log())
				res, err = svc.ExportDocument(ctx, doc)
				if err != nil {
					return err
				}
			}
			target := out
			if target == "" {
				target = res.Filename
			}
			if err := r.writeOutput(target, res.Data); err != nil {
				return err
			}
			if target != "-" {
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s subtotal=%s tax=%s total=%s\n", target,
					res.Totals.Subtotal.StringFixed(2), res.Totals.Tax.StringFixed(2), res.Totals.Grand.StringFixed(2))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "stored purchase order id")
	cmd.Flags().StringVar(&file, "file", "", "PO payload JSON file, - for stdin")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output path, - for stdout (default <id>.xlsx)")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "drop the stored workbook for --id and render again")
	return cmd
}
