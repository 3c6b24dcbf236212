package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"mediaflow/internal/api"
)

func newWorkersCommand(ctx *commandContext) *cobra.Command {
	workersCmd := &cobra.Command{
		Use:   "workers",
		Short: "List and manage workers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			var list api.WorkerListResponse
			if err := client.get("/api/workers", &list); err != nil {
				return err
			}

			rows := make([][]string, 0, len(list.Workers))
			for _, worker := range list.Workers {
				rows = append(rows, []string{
					strconv.FormatInt(worker.ID, 10),
					worker.Name,
					worker.Status,
					fmt.Sprintf("%d/%d", worker.CurrentJobs, worker.MaxConcurrentJobs),
					formatJobIDs(worker.CurrentJobIDs),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Name", "Status", "Load", "Jobs"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	workersCmd.AddCommand(newWorkerActiveCommand(ctx, "enable", true))
	workersCmd.AddCommand(newWorkerActiveCommand(ctx, "disable", false))
	return workersCmd
}

func newWorkerActiveCommand(ctx *commandContext, verb string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <id>",
		Short: capitalize(verb) + " a worker",
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
			var resp api.WorkerResponse
			if err := client.patch(fmt.Sprintf("/api/workers/%d/active", id), api.ActiveRequest{Active: active}, &resp); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Worker %q is now %s\n", resp.Worker.Name, resp.Worker.Status)
			return nil
		},
	}
}
