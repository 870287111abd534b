package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/bimdev1/Cortex/pkg/provider"
)

var networksCmd = &cobra.Command{
	Use:   "networks",
	Short: "Show provider network health",
	RunE: func(cmd *cobra.Command, args []string) error {
		var networks map[string]provider.ProviderStatus
		if err := apiRequest("GET", "/networks", nil, 200, &networks); err != nil {
			return err
		}

		if IsJSONOutput() {
			return printJSON(networks)
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.Header("Network", "Connected", "Status", "Latency (ms)", "Nodes", "Price", "Last Checked")
		for name, st := range networks {
			connected := "no"
			if st.Connected {
				connected = "yes"
			}
			health := st.Health
			table.Append(
				name,
				connected,
				string(health.Status),
				fmt.Sprintf("%d", health.Latency),
				fmt.Sprintf("%d", health.AvailableNodes),
				fmt.Sprintf("%.4f", health.CurrentPrice),
				health.LastChecked.Format(time.RFC3339),
			)
		}
		table.Render()
		return nil
	},
}

var pollerStatusCmd = &cobra.Command{
	Use:   "poller",
	Short: "Show reconciliation loop status",
	RunE: func(cmd *cobra.Command, args []string) error {
		var status struct {
			Running        bool  `json:"running"`
			ActiveJobs     int   `json:"active_jobs"`
			PollIntervalMS int64 `json:"poll_interval_ms"`
		}
		if err := apiRequest("GET", "/poller/status", nil, 200, &status); err != nil {
			return err
		}

		if IsJSONOutput() {
			return printJSON(status)
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.Header("Field", "Value")
		table.Append("Running", fmt.Sprintf("%t", status.Running))
		table.Append("Active Jobs", fmt.Sprintf("%d", status.ActiveJobs))
		table.Append("Poll Interval", fmt.Sprintf("%dms", status.PollIntervalMS))
		table.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(networksCmd)
	rootCmd.AddCommand(pollerStatusCmd)
}
