package cmd

import (
	"github.com/WeWriteApp/pagechain/internal/config"
	"github.com/WeWriteApp/pagechain/internal/store"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(migrateCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "run database migrations",
	Run: func(cmd *cobra.Command, args []string) {
		cnf := config.LoadConfig()
		db := config.GetDb(cnf)

		if err := store.NewGormStore(db).Migrate(); err != nil {
			logrus.Fatalf("migration failed: %v", err)
		}

		logrus.Info("migration complete")
	},
}
