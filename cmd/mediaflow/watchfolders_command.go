package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"mediaflow/internal/api"
)

func newWatchfoldersCommand(ctx *commandContext) *cobra.Command {
	watchfoldersCmd := &cobra.Command{
		Use:     "watchfolders",
		Aliases: []string{"wf"},
		Short:   "List and manage watchfolders",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			var list api.WatchfolderListResponse
			if err := client.get("/api/watchfolders", &list); err != nil {
				return err
			}

			rows := make([][]string, 0, len(list.Watchfolders))
			for _, folder := range list.Watchfolders {
				location := folder.Path
				if folder.WatchType == "ftp" {
					location = fmt.Sprintf("%s:%s", folder.FTPHost, folder.FTPRemotePath)
				}
				rows = append(rows, []string{
					strconv.FormatInt(folder.ID, 10),
					folder.Name,
					folder.WatchType,
					folder.Status,
					location,
					folder.LastError,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Name", "Type", "Status", "Location", "Last Error"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}

	watchfoldersCmd.AddCommand(newWatchfolderActiveCommand(ctx, "enable", true))
	watchfoldersCmd.AddCommand(newWatchfolderActiveCommand(ctx, "disable", false))
	watchfoldersCmd.AddCommand(newWatchfolderDeleteCommand(ctx))
	return watchfoldersCmd
}

func newWatchfolderActiveCommand(ctx *commandContext, verb string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <id>",
		Short: capitalize(verb) + " a watchfolder",
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
			var resp api.WatchfolderResponse
			if err := client.patch(fmt.Sprintf("/api/watchfolders/%d/active", id), api.ActiveRequest{Active: active}, &resp); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Watchfolder %q is now %s\n", resp.Watchfolder.Name, resp.Watchfolder.Status)
			return nil
		},
	}
}

func newWatchfolderDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a watchfolder (its jobs are kept)",
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
			if err := client.delete(fmt.Sprintf("/api/watchfolders/%d", id)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Watchfolder %d deleted\n", id)
			return nil
		},
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
