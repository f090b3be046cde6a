package main

import (
	"context"

	"github.com/deppfellow/emission-lookup/internal/database"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the devices, vehicles and traffic_levels tables",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		srv, err := newServer()
		if err != nil {
			return err
		}
		defer srv.Shutdown(context.Background())

		return database.Migrate(cmd.Context(), &log, srv.DB)
	},
}
