package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/bimdev1/Cortex/pkg/models"
)

var (
	submitName     string
	submitProvider string
	submitImage    string
	submitCPU      int
	submitMemory   string
	submitStorage  string
	submitDuration int
	submitEnv      []string
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Manage compute jobs",
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		var jobs []models.Job
		if err := apiRequest("GET", "/jobs", nil, 200, &jobs); err != nil {
			return err
		}

		if IsJSONOutput() {
			return printJSON(jobs)
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.Header("ID", "Name", "Provider", "Status", "Est. Cost", "Created")
		for _, job := range jobs {
			table.Append(
				job.ID,
				job.Name,
				job.Provider,
				string(job.Status),
				fmt.Sprintf("%.4f", job.EstimatedCost),
				job.CreatedAt.Format(time.RFC3339),
			)
		}
		table.Render()
		return nil
	},
}

var jobsSubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a new job",
	RunE: func(cmd *cobra.Command, args []string) error {
		env := make(map[string]string)
		for _, kv := range submitEnv {
			parts := strings.SplitN(kv, "=", 2)
			if len(parts) != 2 {
				return fmt.Errorf("invalid env entry %q, expected KEY=VALUE", kv)
			}
			env[parts[0]] = parts[1]
		}

		req := models.JobRequest{
			Name:     submitName,
			Provider: submitProvider,
			Configuration: models.JobConfiguration{
				Image:    submitImage,
				CPU:      submitCPU,
				Memory:   submitMemory,
				Storage:  submitStorage,
				Duration: submitDuration,
				Env:      env,
			},
		}
		body, err := json.Marshal(req)
		if err != nil {
			return err
		}

		var job models.Job
		if err := apiRequest("POST", "/jobs", bytes.NewReader(body), 201, &job); err != nil {
			return err
		}

		if IsJSONOutput() {
			return printJSON(job)
		}
		printJobDetails(&job)
		return nil
	},
}

var jobsStatusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Show the current status of a job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var status struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		}
		if err := apiRequest("GET", "/jobs/"+args[0]+"/status", nil, 200, &status); err != nil {
			return err
		}

		if IsJSONOutput() {
			return printJSON(status)
		}
		fmt.Printf("%s: %s\n", status.ID, status.Status)
		return nil
	},
}

var jobsShowCmd = &cobra.Command{
	Use:   "show <job-id>",
	Short: "Show the full record of a job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var job models.Job
		if err := apiRequest("GET", "/jobs/"+args[0], nil, 200, &job); err != nil {
			return err
		}

		if IsJSONOutput() {
			return printJSON(job)
		}
		printJobDetails(&job)
		return nil
	},
}

var jobsLogsCmd = &cobra.Command{
	Use:   "logs <job-id>",
	Short: "Show provider logs for a job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var body struct {
			ID   string   `json:"id"`
			Logs []string `json:"logs"`
		}
		if err := apiRequest("GET", "/jobs/"+args[0]+"/logs", nil, 200, &body); err != nil {
			return err
		}

		if IsJSONOutput() {
			return printJSON(body)
		}
		for _, line := range body.Logs {
			fmt.Println(line)
		}
		return nil
	},
}

var jobsCancelCmd = &cobra.Command{
	Use:   "cancel <job-id>",
	Short: "Cancel a running or pending job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var body struct {
			ID string `json:"id"`
		}
		if err := apiRequest("DELETE", "/jobs/"+args[0], nil, 200, &body); err != nil {
			return err
		}

		if IsJSONOutput() {
			return printJSON(body)
		}
		fmt.Printf("Job %s cancelled\n", body.ID)
		return nil
	},
}

func printJobDetails(job *models.Job) {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Field", "Value")

	table.Append("ID", job.ID)
	table.Append("Name", job.Name)
	table.Append("Provider", job.Provider)
	table.Append("Provider Job ID", job.ProviderJobID)
	table.Append("Status", string(job.Status))
	table.Append("Image", job.Configuration.Image)
	table.Append("CPU (millicores)", fmt.Sprintf("%d", job.Configuration.CPU))
	table.Append("Memory", job.Configuration.Memory)
	if job.Configuration.Storage != "" {
		table.Append("Storage", job.Configuration.Storage)
	}
	table.Append("Estimated Cost", fmt.Sprintf("%.4f", job.EstimatedCost))
	if job.ActualCost > 0 {
		table.Append("Actual Cost", fmt.Sprintf("%.4f", job.ActualCost))
	}
	table.Append("Created At", job.CreatedAt.Format(time.RFC3339))
	if job.StartedAt != nil {
		table.Append("Started At", job.StartedAt.Format(time.RFC3339))
	}
	if job.CompletedAt != nil {
		table.Append("Completed At", job.CompletedAt.Format(time.RFC3339))
	}
	if job.Error != "" {
		table.Append("Error", job.Error)
	}

	table.Render()
}

func init() {
	jobsSubmitCmd.Flags().StringVar(&submitName, "name", "", "job name (required)")
	jobsSubmitCmd.Flags().StringVar(&submitProvider, "provider", "akash", "target provider network")
	jobsSubmitCmd.Flags().StringVar(&submitImage, "image", "", "container image (required)")
	jobsSubmitCmd.Flags().IntVar(&submitCPU, "cpu", 100, "cpu request in millicores")
	jobsSubmitCmd.Flags().StringVar(&submitMemory, "memory", "512Mi", "memory request, e.g. 512Mi or 2Gi")
	jobsSubmitCmd.Flags().StringVar(&submitStorage, "storage", "", "storage request, e.g. 1Gi")
	jobsSubmitCmd.Flags().IntVar(&submitDuration, "duration", 0, "run duration in seconds (0 = until stopped)")
	jobsSubmitCmd.Flags().StringArrayVar(&submitEnv, "env", nil, "environment variable KEY=VALUE (repeatable)")
	jobsSubmitCmd.MarkFlagRequired("name")
	jobsSubmitCmd.MarkFlagRequired("image")

	jobsCmd.AddCommand(jobsListCmd)
	jobsCmd.AddCommand(jobsSubmitCmd)
	jobsCmd.AddCommand(jobsStatusCmd)
	jobsCmd.AddCommand(jobsShowCmd)
	jobsCmd.AddCommand(jobsLogsCmd)
	jobsCmd.AddCommand(jobsCancelCmd)
	rootCmd.AddCommand(jobsCmd)
}
