package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"example.com/amadvs/internal/core"
)

func usersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Inspect and approve directory accounts",
	}
	cmd.AddCommand(usersListCmd(), usersApproveCmd())
	return cmd
}

func usersListCmd() *cobra.Command {
	var pending bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, closeDir, err := openDirectory(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeDir()

			var users []core.User
			if pending {
				users, err = dir.Pending(cmd.Context())
			} else {
				users, err = dir.List(cmd.Context())
			}
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tROLE\tEMAIL\tAPPROVED")
			for _, u := range users {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\n", u.ID, u.Name, u.Role, u.Email, u.Approved)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&pending, "pending", false, "only accounts awaiting approval")
	return cmd
}

func usersApproveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "approve [id]",
		Short: "Approve a pending account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, closeDir, err := openDirectory(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeDir()

			u, err := dir.Approve(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Approved %s (%s)\n", u.Name, u.Email)
			return nil
		},
	}
}
