package cli

import (
	"github.com/spf13/cobra"

	"github.com/PPA-BE/Orders-At-Peak/internal/preview"
	"github.com/PPA-BE/Orders-At-Peak/internal/purchasing"
	"github.com/PPA-BE/Orders-At-Peak/internal/view"
	"github.com/PPA-BE/Orders-At-Peak/report"
)

func (r *Root) previewCommand() *cobra.Command {
	var (
		id, file, out   string
		standalone, pdf bool
	)
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Render the HTML preview of a PO",
		Example: `  poctl preview --file po.json
  poctl preview --id 3f1c... --standalone --out po.html
  poctl preview --file po.json --pdf --out po.pdf`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkSource(id, file); err != nil {
				return err
			}
			ctx := cmd.Context()
			cfg, err := r.config()
			if err != nil {
				return err
			}

			var doc purchasing.Document
			if id != "" {
				svc, done, err := r.services(ctx)
				if err != nil {
					return err
				}
				defer done()
				if doc, err = svc.Purchasing.Document(ctx, id); err != nil {
					return err
				}
			} else if doc, err = r.readDocument(file); err != nil {
				return err
			}

			engine, err := view.NewEngine()
			if err != nil {
				return err
			}
			var converter preview.PDFConverter
			if pdf && cfg.GotenbergURL != "" {
				converter = report.NewClient(cfg.GotenbergURL)
			}
			renderer := preview.NewRenderer(engine, cfg.TaxRate)
			svc := preview.NewService(nil, renderer, converter)

			target := out
			if target == "" {
				target = "-"
			}
			if pdf {
				data, err := svc.PDF(ctx, doc)
				if err != nil {
					return err
				}
				return r.writeOutput(target, data)
			}
			var html string
			if standalone {
				html, err = renderer.RenderDocument(doc)
			} else {
				html, err = svc.HTML(doc)
			}
			if err != nil {
				return err
			}
			return r.writeOutput(target, []byte(html))
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "stored purchase order id")
	cmd.Flags().StringVar(&file, "file", "", "PO payload JSON file, - for stdin")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output path (default stdout)")
	cmd.Flags().BoolVar(&standalone, "standalone", false, "wrap the fragment in a full HTML page")
	cmd.Flags().BoolVar(&pdf, "pdf", false, "convert to PDF through Gotenberg")
	return cmd
}
