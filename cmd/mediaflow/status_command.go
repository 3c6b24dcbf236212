package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"mediaflow/internal/api"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon, watchfolder, and worker status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			var status api.StatusResponse
			if err := client.get("/api/status", &status); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Daemon running (pid %d)\n", status.PID)
			fmt.Fprintf(out, "Database: %s\n\n", status.DatabasePath)

			folderRows := make([][]string, 0, len(status.Watchfolders))
			for _, view := range status.Watchfolders {
				folderRows = append(folderRows, []string{
					strconv.FormatInt(view.Watchfolder.ID, 10),
					view.Watchfolder.Name,
					view.Watchfolder.WatchType,
					view.Watchfolder.Status,
					strconv.Itoa(view.Pending),
					strconv.Itoa(view.Processing),
					strconv.Itoa(view.Completed),
					strconv.Itoa(view.Failed),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Name", "Type", "Status", "Pending", "Processing", "Completed", "Failed"},
				folderRows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
			))

			workerRows := make([][]string, 0, len(status.Workers))
			for _, worker := range status.Workers {
				workerRows = append(workerRows, []string{
					strconv.FormatInt(worker.ID, 10),
					worker.Name,
					worker.Status,
					fmt.Sprintf("%d/%d", worker.CurrentJobs, worker.MaxConcurrentJobs),
					formatJobIDs(worker.CurrentJobIDs),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Worker", "Status", "Load", "Jobs"},
				workerRows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
}

func formatJobIDs(ids []int64) string {
	if len(ids) == 0 {
		return "-"
	}
	out := ""
	for i, id := range ids {
		if i > 0 {
			out += ", "
		}
		out += strconv.FormatInt(id, 10)
	}
	return out
}
