package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/labte-ums/lorawan-dashboard/internal/devices"
	"github.com/labte-ums/lorawan-dashboard/internal/telemetry"
	"github.com/labte-ums/lorawan-dashboard/internal/validation"
)

var (
	deviceDays int
	deviceJSON bool
)

// devicesCmd represents the devices command
var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "Show the latest state of every device",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		req := struct {
			Days int `json:"days" validate:"min=0,max=365"`
		}{Days: deviceDays}
		if err := validation.NewValidator().Validate(&req); err != nil {
			return err
		}

		client := telemetry.NewClient(cfg.Telemetry)
		aggregator := devices.NewAggregator(client, devices.WithConcurrency(cfg.Devices.FetchConcurrency))

		report, err := aggregator.ListDevicesWithDetail(cmd.Context())
		if err != nil && !errors.Is(err, devices.ErrNoValidDetail) {
			return err
		}

		now := time.Now()
		list := devices.FilterRecent(report.Devices, deviceDays, now)

		out := cmd.OutOrStdout()
		if deviceJSON {
			filtered := *report
			filtered.Devices = list
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(filtered)
		}

		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "DEVEUI\tNAME\tAPP\tFREQUENCY\tBAND\tLAST SEEN\tAGO")
		for _, d := range list {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				d.EUI, d.Name, d.AppName,
				devices.FormatFrequency(d.Frequency),
				devices.BandLabel(d.Frequency),
				d.LastSeenLabel,
				devices.ElapsedLabel(d.LastSeenSort, now))
		}
		if err := tw.Flush(); err != nil {
			return err
		}

		for _, s := range report.Skipped {
			fmt.Fprintf(out, "skipped %s: %s\n", s.ID, s.Reason)
		}
		return err
	},
}

func init() {
	devicesCmd.Flags().IntVar(&deviceDays, "days", 0, "Only show devices seen within this many days (0 shows all, at most 365)")
	devicesCmd.Flags().BoolVar(&deviceJSON, "json", false, "Print the report as JSON")
	rootCmd.AddCommand(devicesCmd)
}
