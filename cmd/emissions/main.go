package main

import (
	"fmt"
	"os"

	"github.com/deppfellow/emission-lookup/internal/config"
	"github.com/deppfellow/emission-lookup/internal/logger"
	"github.com/deppfellow/emission-lookup/internal/server"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool

	cfg *config.Config
	log zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "emissions",
	Short: "Emission value lookups backed by a relational database",
	Long: `emissions answers three read-only questions from a relational database:
the emission value of a device, the emission value of a vehicle type and the
multiplier of a traffic level.

The database is selected with DB_URL, DB_USER and DB_PASSWORD.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if verbose {
			cfg.Observability.Logging.Level = "debug"
		}

		// stdout carries command output; logs go to stderr.
		out := os.Stderr
		if cmd == serveCmd {
			out = os.Stdout
		}
		log = logger.NewWithWriter(&cfg.Observability, out)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")

	lookupCmd.PersistentFlags().BoolVar(&lookupStrict, "strict", false, "fail on a missing key or database error instead of printing 0")
	lookupCmd.PersistentFlags().BoolVar(&lookupJSON, "json", false, "print the result as JSON")
	lookupCmd.AddCommand(lookupDeviceCmd, lookupVehicleCmd, lookupTrafficCmd)

	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", false, "apply migrations before serving")

	rootCmd.AddCommand(serveCmd, lookupCmd, migrateCmd)
}

// newServer builds the application container from the loaded config.
func newServer() (*server.Server, error) {
	return server.New(cfg, &log)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
