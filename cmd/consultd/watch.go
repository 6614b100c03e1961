package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/Freeeeeet/consult_sessions/internal/app"
	"github.com/Freeeeeet/consult_sessions/internal/client"
	"github.com/Freeeeeet/consult_sessions/internal/model"
	"github.com/spf13/cobra"
)

var (
	watchServer string
	watchUser   int64
	watchRole   string
	watchJoin   bool
)

var watchCmd = &cobra.Command{
	Use:   "watch <session-id>",
	Short: "Follow a session's status as a participant",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		who := model.Identity{UserID: watchUser, Role: model.Role(watchRole)}
		if who.UserID <= 0 || !who.Role.Valid() {
			return fmt.Errorf("--user must be positive and --role trader or expert")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		logger := app.NewLogger("development")
		defer logger.Sync()
		c := client.New(watchServer, who)
		out := cmd.OutOrStdout()

		if watchJoin {
			res, err := client.NewJoiner(c, client.DefaultJoinTimeout).Join(ctx, args[0])
			if err != nil {
				return fmt.Errorf("join: %w", err)
			}
			fmt.Fprintf(out, "joined, status %s\n", res.Session.Status)
		}

		return client.NewWatcher(c, logger).Watch(ctx, args[0], func(s model.Session) {
			fmt.Fprintf(out, "%s  %s\n", s.UpdatedAt.Format("15:04:05"), s.Status)
		})
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchServer, "server", "http://localhost:8080", "consultd base URL")
	watchCmd.Flags().Int64Var(&watchUser, "user", 0, "participant user id")
	watchCmd.Flags().StringVar(&watchRole, "role", string(model.RoleTrader), "participant role (trader or expert)")
	watchCmd.Flags().BoolVar(&watchJoin, "join", false, "join the session before watching")
}
