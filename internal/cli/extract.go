package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.io/infrasutra/speedydraft/internal/extract"
	"github.io/infrasutra/speedydraft/internal/pdftext"
)

var extractCmd = &cobra.Command{
	Use:   "extract <folder>",
	Short: "Print the email addresses found in the PDFs of a folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}

		// Folder extraction never writes to the upload spool.
		svc := extract.NewService(pdftext.New(logger), nil, cfg.Extract.Workers, logger)
		results, err := svc.FromFolder(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("extract %s: %w", args[0], err)
		}

		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(results)
	},
}
