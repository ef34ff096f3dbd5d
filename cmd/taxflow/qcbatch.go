package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ritzau/taxflow/pkg/logging"
	"github.com/ritzau/taxflow/pkg/qc"
)

func newQCBatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "qc-batch <batch.fastq[.gz]> <cumul_qc.txt>",
		Short: "Append the read and base counts of one batch to the QC file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			row, err := qc.ScanBatch(args[0])
			if err != nil {
				return err
			}
			if err := qc.AppendTimeline(args[1], row); err != nil {
				return err
			}
			logging.Debug("appended qc batch", "batch", args[0], "reads", row.Reads, "bases", row.Bases)
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d reads, %d bases\n", args[0], row.Reads, row.Bases)
			return nil
		},
	}
}
