package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"mediaflow/internal/api"
)

func newPresetsCommand(ctx *commandContext) *cobra.Command {
	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "List encode presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			var list api.PresetListResponse
			if err := client.get("/api/presets", &list); err != nil {
				return err
			}

			rows := make([][]string, 0, len(list.Presets))
			for _, preset := range list.Presets {
				video := preset.VideoCodec
				if preset.VideoBitrate != "" {
					video += " @ " + preset.VideoBitrate
				}
				audio := preset.AudioCodec
				if preset.AudioBitrate != "" {
					audio += " @ " + preset.AudioBitrate
				}
				rows = append(rows, []string{
					strconv.FormatInt(preset.ID, 10),
					preset.Name,
					video,
					audio,
					preset.Container,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Name", "Video", "Audio", "Container"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}

	presetsCmd.AddCommand(newPresetDeleteCommand(ctx))
	return presetsCmd
}

func newPresetDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a preset not referenced by any watchfolder",
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
			if err := client.delete(fmt.Sprintf("/api/presets/%d", id)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Preset %d deleted\n", id)
			return nil
		},
	}
}
