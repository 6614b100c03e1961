package main

import (
	"fmt"

	"github.com/Freeeeeet/consult_sessions/internal/client"
	"github.com/Freeeeeet/consult_sessions/internal/model"
	"github.com/spf13/cobra"
)

var (
	linkServer string
	linkUser   int64
	linkRole   string
)

var linkCodeCmd = &cobra.Command{
	Use:   "link-code",
	Short: "Issue a one-time code for linking Telegram notifications",
	RunE: func(cmd *cobra.Command, args []string) error {
		who := model.Identity{UserID: linkUser, Role: model.Role(linkRole)}
		if who.UserID <= 0 || !who.Role.Valid() {
			return fmt.Errorf("--user must be positive and --role trader or expert")
		}

		code, err := client.New(linkServer, who).IssueLinkCode(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Send to the bot: /start %s (valid until %s)\n",
			code.Code, code.ExpiresAt.Local().Format("15:04"))
		return nil
	},
}

func init() {
	linkCodeCmd.Flags().StringVar(&linkServer, "server", "http://localhost:8080", "consultd base URL")
	linkCodeCmd.Flags().Int64Var(&linkUser, "user", 0, "platform user id")
	linkCodeCmd.Flags().StringVar(&linkRole, "role", string(model.RoleTrader), "user role (trader or expert)")
}
