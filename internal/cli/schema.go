package cli

import (
	"fmt"

	"github.com/mugiliam/hatchdockstore/internal/config"
	"github.com/mugiliam/hatchdockstore/internal/db"
	"github.com/mugiliam/hatchdockstore/internal/db/postgresql"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newSchemaCmd() *cobra.Command {
	var printOnly bool
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Apply the Postgres schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if printOnly {
				fmt.Fprint(cmd.OutOrStdout(), postgresql.Schema())
				return nil
			}
			c := config.Config()
			if c.DB.Driver != "postgresql" {
				return fmt.Errorf("schema needs the postgresql driver, configured %q", c.DB.Driver)
			}
			ctx := log.Logger.WithContext(cmd.Context())
			if err := db.Init(ctx, c.DB); err != nil {
				return err
			}
			defer db.Shutdown(ctx)
			conn := db.Conn(ctx)
			if conn == nil {
				return db.ErrNotInitialized
			}
			defer conn.Close(ctx)
			if err := postgresql.ApplySchema(ctx, conn); err != nil {
				return err
			}
			log.Ctx(ctx).Info().Msg("schema applied")
			return nil
		},
	}
	cmd.Flags().BoolVar(&printOnly, "print", false, "print the schema instead of applying it")
	return cmd
}
