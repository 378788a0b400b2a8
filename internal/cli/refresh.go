package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/mugiliam/hatchdockstore/internal/config"
	"github.com/mugiliam/hatchdockstore/internal/db"
	"github.com/mugiliam/hatchdockstore/internal/entrymanager"
	"github.com/mugiliam/hatchdockstore/pkg/types"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// newRefreshOrgCmd creates the `refresh-org` command.
// Usage: hatchdockstore refresh-org <source-control> <organization>
func newRefreshOrgCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh-org <source-control> <organization>",
		Short: "Refresh every entry of an organization",
		Long: `Refreshes each non-hosted entry of the organization one after the other and
prints how many succeeded. Exits with a non-zero code if any entry failed.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, ok := types.ParseSourceControl(args[0])
			if !ok {
				return fmt.Errorf("unsupported source control %q", args[0])
			}
			ctx := log.Logger.WithContext(cmd.Context())
			if err := db.Init(ctx, config.Config().DB); err != nil {
				return err
			}
			defer db.Shutdown(ctx)
			m, err := newManager(config.Config())
			if err != nil {
				return err
			}
			return runRefreshOrg(ctx, m, sc, args[1], cmd.OutOrStdout())
		},
	}
}

func runRefreshOrg(ctx context.Context, m *entrymanager.Manager, sc types.SourceControl, org string, w io.Writer) error {
	ctx = db.ConnCtx(ctx)
	if !db.HasDB(ctx) {
		return db.ErrNotInitialized
	}
	defer db.DB(ctx).Close(ctx)

	res, err := m.RefreshOrganization(ctx, sc, org)
	if err != nil {
		return err
	}
	writeReport(w, res)
	if res.Failed > 0 {
		return fmt.Errorf("%d of %d entries failed to refresh", res.Failed, res.Processed)
	}
	return nil
}

func writeReport(w io.Writer, res *entrymanager.BatchResult) {
	fmt.Fprintf(w, "processed: %d\n", res.Processed)
	fmt.Fprintf(w, "succeeded: %d\n", res.Succeeded)
	fmt.Fprintf(w, "failed:    %d\n", res.Failed)
	for _, e := range res.Errors {
		fmt.Fprintf(w, "FAILED %s: %s\n", e.EntryPath, e.Error)
	}
}
