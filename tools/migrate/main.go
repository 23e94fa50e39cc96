package main

import (
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/md-rashed-zaman/salonbook/libs/config"
	"github.com/md-rashed-zaman/salonbook/libs/db"
	notificationmigrations "github.com/md-rashed-zaman/salonbook/services/notification-service/migrations"
	salonmigrations "github.com/md-rashed-zaman/salonbook/services/salon-service/migrations"
)

type target struct {
	fs    fs.FS
	table string
}

var targets = map[string]target{
	"salon":        {fs: salonmigrations.FS},
	"notification": {fs: notificationmigrations.FS, table: "notification_schema_migrations"},
}

// Usage: migrate [-service salon|notification] [up | force <version> | version]
func main() {
	_ = config.LoadDotEnv()
	var (
		service = flag.String("service", "salon", "schema to migrate: salon or notification")
		dbURL   = flag.String("database-url", config.String("DATABASE_URL", ""), "postgres connection url")
	)
	flag.Parse()

	if *dbURL == "" {
		fatal("DATABASE_URL is required")
	}
	t, ok := targets[*service]
	if !ok {
		fatal(fmt.Sprintf("unknown service %q", *service))
	}

	mg, err := db.NewMigrator(*dbURL, t.fs, t.table)
	if err != nil {
		fatal(err.Error())
	}
	defer func() { _ = mg.Close() }()

	cmd := flag.Arg(0)
	switch cmd {
	case "", "up":
		if err := mg.Up(); err != nil {
			fatal(err.Error())
		}
	case "force":
		v, err := strconv.Atoi(flag.Arg(1))
		if err != nil {
			fatal("force needs a numeric version")
		}
		if err := mg.Force(v); err != nil {
			fatal(err.Error())
		}
	case "version":
	default:
		fatal(fmt.Sprintf("unknown command %q", cmd))
	}

	version, dirty, err := mg.Version()
	if err != nil {
		fatal(err.Error())
	}
	fmt.Printf("%s schema at version %d (dirty=%t)\n", *service, version, dirty)
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
