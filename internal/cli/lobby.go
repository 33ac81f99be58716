package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLobbyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lobby",
		Short: "Lobby management commands",
	}

	cmd.AddCommand(newLobbyCreateCmd())
	cmd.AddCommand(newLobbyListCmd())
	cmd.AddCommand(newLobbyGetCmd())
	cmd.AddCommand(newLobbyEnterCmd())
	cmd.AddCommand(newLobbyLeaveCmd())
	cmd.AddCommand(newLobbyDeleteCmd())
	cmd.AddCommand(newLobbyAdminCmd())

	return cmd
}

func newLobbyCreateCmd() *cobra.Command {
	var code string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new lobby",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{}
			if code != "" {
				req["code"] = code
			}

			var result Lobby

			if err := client.Post("/api/v1/lobbies", req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&code, "code", "", "Lobby code (default: generated)")

	return cmd
}

func newLobbyListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List active lobbies",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result LobbyList

			if err := client.Get("/api/v1/lobbies", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newLobbyGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <code>",
		Short: "Get lobby details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := args[0]

			var result Lobby

			if err := client.Get(fmt.Sprintf("/api/v1/lobbies/%s", code), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newLobbyEnterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enter <code>",
		Short: "Enter a lobby",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := args[0]

			var result Lobby

			if err := client.Post(fmt.Sprintf("/api/v1/lobbies/%s/enter", code), nil, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newLobbyLeaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "leave <code>",
		Short: "Leave a lobby",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := args[0]

			if err := client.Post(fmt.Sprintf("/api/v1/lobbies/%s/leave", code), nil, nil); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage(fmt.Sprintf("Left lobby %s", code))
			return nil
		},
	}
}

func newLobbyDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <code>",
		Short: "Delete a lobby (admins only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := args[0]

			if err := client.Delete(fmt.Sprintf("/api/v1/lobbies/%s", code)); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage(fmt.Sprintf("Deleted lobby %s", code))
			return nil
		},
	}
}

func newLobbyAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage lobby admins",
	}

	cmd.AddCommand(newLobbyAdminAddCmd())
	cmd.AddCommand(newLobbyAdminRemoveCmd())

	return cmd
}

func newLobbyAdminAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <code> <player-id>",
		Short: "Grant admin rights to a lobby member",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, playerID := args[0], args[1]

			req := map[string]string{"player_id": playerID}
			var result Lobby

			if err := client.Put(fmt.Sprintf("/api/v1/lobbies/%s/admins", code), req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newLobbyAdminRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <code> <player-id>",
		Short: "Revoke admin rights from a lobby member",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, playerID := args[0], args[1]

			if err := client.Delete(fmt.Sprintf("/api/v1/lobbies/%s/admins/%s", code, playerID)); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage(fmt.Sprintf("Removed admin %s from lobby %s", playerID, code))
			return nil
		},
	}
}
