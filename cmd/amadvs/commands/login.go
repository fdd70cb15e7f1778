package commands

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"example.com/amadvs/internal/session"
)

func loginCmd() *cobra.Command {
	var pass string
	cmd := &cobra.Command{
		Use:   "login [email]",
		Short: "Try a login against the directory and print the session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, closeDir, err := openDirectory(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeDir()

			store := session.NewStore(dir, dir,
				session.WithLatency(session.FixedLatency(cfg.AuthLatency)),
				session.WithLogger(logger),
			)
			defer store.Close()

			loginErr := store.Login(cmd.Context(), args[0], pass)

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(store.Snapshot()); err != nil {
				return err
			}
			return loginErr
		},
	}
	cmd.Flags().StringVarP(&pass, "password", "p", "", "account password")
	return cmd
}
