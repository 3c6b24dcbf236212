package main

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"mediaflow/internal/api"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	var watchfolderID int64
	var statusFilter string
	var limit int

	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "List and inspect transcode jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}

			values := url.Values{}
			if watchfolderID > 0 {
				values.Set("watchfolder", strconv.FormatInt(watchfolderID, 10))
			}
			if statusFilter != "" {
				values.Set("status", statusFilter)
			}
			if limit > 0 {
				values.Set("limit", strconv.Itoa(limit))
			}
			path := "/api/jobs"
			if encoded := values.Encode(); encoded != "" {
				path += "?" + encoded
			}

			var list api.JobListResponse
			if err := client.get(path, &list); err != nil {
				return err
			}

			rows := make([][]string, 0, len(list.Jobs))
			for _, job := range list.Jobs {
				rows = append(rows, []string{
					strconv.FormatInt(job.ID, 10),
					job.InputFilename,
					job.Status,
					fmt.Sprintf("%.0f%%", job.Progress),
					formatSize(job.InputSize),
					job.CreatedAt,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "File", "Status", "Progress", "Size", "Created"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}

	jobsCmd.Flags().Int64Var(&watchfolderID, "watchfolder", 0, "Filter by watchfolder id")
	jobsCmd.Flags().StringVar(&statusFilter, "status", "", "Filter by job status (pending, processing, completed, failed)")
	jobsCmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of jobs to list")

	jobsCmd.AddCommand(newJobShowCommand(ctx))
	jobsCmd.AddCommand(newJobRetryCommand(ctx))
	return jobsCmd
}

func newJobShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show job detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			var resp api.JobResponse
			if err := client.get(fmt.Sprintf("/api/jobs/%d", id), &resp); err != nil {
				return err
			}

			job := resp.Job
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Job %d: %s\n", job.ID, job.InputFilename)
			fmt.Fprintf(out, "  Status:          %s (%.0f%%)\n", job.Status, job.Progress)
			fmt.Fprintf(out, "  Input:           %s (%s, %.1fs)\n", job.InputPath, formatSize(job.InputSize), job.InputDuration)
			if job.OutputPath != "" {
				fmt.Fprintf(out, "  Output:          %s (%s, %.1fs)\n", job.OutputPath, formatSize(job.OutputSize), job.OutputDuration)
			}
			fmt.Fprintf(out, "  Created:         %s\n", job.CreatedAt)
			if job.StartedAt != "" {
				fmt.Fprintf(out, "  Started:         %s\n", job.StartedAt)
			}
			if job.CompletedAt != "" {
				fmt.Fprintf(out, "  Completed:       %s\n", job.CompletedAt)
			}
			if job.AssignedWorkerID != 0 {
				fmt.Fprintf(out, "  Worker:          %d\n", job.AssignedWorkerID)
			}
			if job.ErrorMessage != "" {
				fmt.Fprintf(out, "  Error:           %s\n", job.ErrorMessage)
			}
			return nil
		},
	}
}

func newJobRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <id>",
		Short: "Requeue a failed job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			var resp api.JobResponse
			if err := client.post(fmt.Sprintf("/api/jobs/%d/retry", id), nil, &resp); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Job %d requeued as %s\n", resp.Job.ID, resp.Job.Status)
			return nil
		},
	}
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return id, nil
}

func formatSize(size int64) string {
	const (
		kib = 1 << 10
		mib = 1 << 20
		gib = 1 << 30
	)
	switch {
	case size >= gib:
		return fmt.Sprintf("%.1f GiB", float64(size)/gib)
	case size >= mib:
		return fmt.Sprintf("%.1f MiB", float64(size)/mib)
	case size >= kib:
		return fmt.Sprintf("%.1f KiB", float64(size)/kib)
	default:
		return fmt.Sprintf("%d B", size)
	}
}
