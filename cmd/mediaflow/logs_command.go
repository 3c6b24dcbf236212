package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mediaflow/internal/api"
	"mediaflow/internal/config"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int

	logsCmd := &cobra.Command{
		Use:   "logs",
		Short: "Tail the daemon log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			var tail api.LogTailResponse
			if err := client.get(fmt.Sprintf("/api/logs?lines=%d", lines), &tail); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, line := range tail.Lines {
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
	logsCmd.Flags().IntVar(&lines, "lines", 100, "Number of trailing lines to show")

	logsCmd.AddCommand(newLogsDownloadCommand(ctx))
	return logsCmd
}

func newLogsDownloadCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "download [file]",
		Short: "Download the full daemon log",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			if len(args) == 0 {
				return client.download("/api/logs/download", cmd.OutOrStdout())
			}

			target, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			file, err := os.Create(target)
			if err != nil {
				return fmt.Errorf("create %s: %w", target, err)
			}
			defer file.Close()
			if err := client.download("/api/logs/download", file); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Log written to %s\n", target)
			return nil
		},
	}
}
