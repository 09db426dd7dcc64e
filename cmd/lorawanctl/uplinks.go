package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/labte-ums/lorawan-dashboard/internal/telemetry"
	"github.com/labte-ums/lorawan-dashboard/internal/validation"
)

var (
	uplinkCount int
	uplinkJSON  bool
)

// uplinksCmd represents the uplinks command
var uplinksCmd = &cobra.Command{
	Use:   "uplinks <dev_eui>",
	Short: "Show the latest uplinks of a device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := struct {
			Count int `json:"n" validate:"oneof=10 25 50 100"`
		}{Count: uplinkCount}
		if err := validation.NewValidator().Validate(&req); err != nil {
			return err
		}

		client := telemetry.NewClient(cfg.Telemetry)
		rows, err := client.FetchUplinks(cmd.Context(), args[0], uplinkCount)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if uplinkJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(rows)
		}

		if len(rows) == 0 {
			fmt.Fprintln(out, "No uplinks.")
			return nil
		}

		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TIME\tDEVICE\tPAYLOAD")
		for _, u := range rows {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", u.Timestamp(), u.DeviceLabel(), u.PayloadSummary())
		}
		return tw.Flush()
	},
}

func init() {
	uplinksCmd.Flags().IntVarP(&uplinkCount, "count", "n", 10, "Number of uplinks (10, 25, 50 or 100)")
	uplinksCmd.Flags().BoolVar(&uplinkJSON, "json", false, "Print the rows as JSON")
	rootCmd.AddCommand(uplinksCmd)
}
