package cli

import (
	"os"

	"github.com/spf13/cobra"

	"quizbot-service/internal/client"
)

// NewChatCmd opens an interactive terminal session on a chat.
func NewChatCmd() *cobra.Command {
	var server, chatID, token string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the quiz bot from the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.Dial(cmd.Context(), server, chatID, token, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer c.Close()
			return c.Run(cmd.Context(), cmd.InOrStdin())
		},
	}
	cmd.Flags().StringVar(&server, "server", "ws://localhost:8080", "websocket base url")
	cmd.Flags().StringVar(&chatID, "chat", "", "chat id")
	cmd.Flags().StringVar(&token, "token", os.Getenv("QUIZBOT_TOKEN"), "bearer token (default $QUIZBOT_TOKEN)")
	_ = cmd.MarkFlagRequired("chat")
	return cmd
}
