package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.io/infrasutra/speedydraft/internal/spool"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Remove expired uploads and drafts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}

		now := time.Now()
		for _, dir := range []string{cfg.Spool.UploadDir, cfg.Spool.DraftDir} {
			s, err := spool.New(dir, cfg.Spool.TTL, logger)
			if err != nil {
				return err
			}
			removed, err := s.Sweep(now)
			if err != nil {
				return fmt.Errorf("sweep %s: %w", dir, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: removed %d file(s)\n", dir, removed)
		}
		return nil
	},
}
