package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/PPA-BE/Orders-At-Peak/internal/platform/db"
	"github.com/PPA-BE/Orders-At-Peak/web"
)

func (r *Root) migrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or revert database migrations",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := r.config()
				if err != nil {
					return err
				}
				if err := db.Migrate(web.Migrations, web.MigrationsDir, cfg.PGDSN); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
				return nil
			},
		},
		&cobra.Command{
			Use:   "down [steps]",
			Short: "Revert the given number of migrations (default 1)",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				steps := 1
				if len(args) == 1 {
					n, err := strconv.Atoi(args[0])
					if err != nil || n <= 0 {
						return fmt.Errorf("steps must be a positive integer, got %q", args[0])
					}
					steps = n
				}
				cfg, err := r.config()
				if err != nil {
					return err
				}
				if err := db.Rollback(web.Migrations, web.MigrationsDir, cfg.PGDSN, steps); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "reverted %d migration(s)\n", steps)
				return nil
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied migration version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := r.config()
				if err != nil {
					return err
				}
				v, dirty, err := db.Version(web.Migrations, web.MigrationsDir, cfg.PGDSN)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version %d dirty=%t\n", v, dirty)
				return nil
			},
		},
	)
	return cmd
}
