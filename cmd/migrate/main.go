// migrate runs the AutoMigrate DDL as a standalone job. The server skips
// migrations when SKIP_MIGRATIONS=true; run this off-hours instead so DDL
// never blocks live traffic.
package main

import (
	"fmt"
	"os"

	"bitbucket.org/mmdatafocus/checks_backend/config"
	"bitbucket.org/mmdatafocus/checks_backend/models"
)

func main() {
	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	models.MigrateTable()
	fmt.Println("migrations complete")
}
