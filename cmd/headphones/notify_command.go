package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"headphones/internal/ipc"
	"headphones/internal/notifications"
)

func newNotifyCommand(ctx *commandContext) *cobra.Command {
	notifyCmd := &cobra.Command{
		Use:   "notify",
		Short: "Notification utilities",
	}
	notifyCmd.AddCommand(&cobra.Command{
		Use:   "test",
		Short: "Send a test notification",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			online, err := ctx.withDaemon(func(client *ipc.Client) error {
				resp, err := client.TestNotification()
				if err != nil {
					return err
				}
				fmt.Fprintln(out, resp.Message)
				return nil
			})
			if err != nil || online {
				return err
			}

			settings, err := ctx.settings()
			if err != nil {
				return err
			}
			if strings.TrimSpace(settings.Notify.NtfyTopic) == "" {
				fmt.Fprintln(out, "Notifications are not configured (set NTFY_TOPIC)")
				return nil
			}
			svc := notifications.NewService(settings.Notify)
			if err := svc.Publish(cmd.Context(), notifications.EventTest, notifications.Payload{"source": "cli"}); err != nil {
				return fmt.Errorf("send test notification: %w", err)
			}
			fmt.Fprintln(out, "Test notification sent")
			return nil
		},
	})
	return notifyCmd
}
