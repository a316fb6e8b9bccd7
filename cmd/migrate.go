package cmd

import (
	"example.com/backstage/services/fieldservice/config"
	"example.com/backstage/services/fieldservice/internal/db"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long: `Runs database migrations to ensure the database schema
is up-to-date. Useful for CI/CD pipelines or initial setup.`,
	RunE: runMigration,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigration(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return err
	}

	log.Info().Msg("Connecting to database")
	gdb, err := db.Connect(cfg.DB)
	if err != nil {
		return err
	}

	log.Info().Msg("Running database migrations")
	if err := db.Migrate(gdb); err != nil {
		return err
	}

	log.Info().Msg("Database migrations completed successfully")
	return nil
}
