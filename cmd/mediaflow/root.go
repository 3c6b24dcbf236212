package main

import (
	"github.com/spf13/cobra"
)

// commandContext carries the shared flags and lazily builds the API client.
type commandContext struct {
	apiFlag    *string
	configFlag *string

	client *apiClient
}

func (ctx *commandContext) apiClient() (*apiClient, error) {
	if ctx.client != nil {
		return ctx.client, nil
	}
	client, err := newAPIClient(*ctx.apiFlag, *ctx.configFlag)
	if err != nil {
		return nil, err
	}
	ctx.client = client
	return client, nil
}

func newRootCommand() *cobra.Command {
	var apiFlag string
	var configFlag string

	ctx := &commandContext{apiFlag: &apiFlag, configFlag: &configFlag}

	rootCmd := &cobra.Command{
		Use:           "mediaflow",
		Short:         "Mediaflow transcode daemon CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&apiFlag, "api", "", "Daemon API address (host:port)")
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newJobsCommand(ctx))
	rootCmd.AddCommand(newWatchfoldersCommand(ctx))
	rootCmd.AddCommand(newPresetsCommand(ctx))
	rootCmd.AddCommand(newWorkersCommand(ctx))
	rootCmd.AddCommand(newLogsCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
