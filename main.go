package main

import (
	"os"

	"github.com/openlibdata/ldx/cmd"

	_ "github.com/openlibdata/ldx/internal/drivers/mysql"
	_ "github.com/openlibdata/ldx/internal/drivers/postgresql"
	_ "github.com/openlibdata/ldx/internal/drivers/sqlite"
	_ "github.com/openlibdata/ldx/internal/drivers/sqlserver"
)

var version = "dev"

func main() {
	if version == "dev" {
		if v, ok := os.LookupEnv("GIT_SHA"); ok && v != "" {
			version = v
		}
	}
	cmd.Version = version
	cmd.Execute()
}
