package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"sort"

	"collab-service/internal/config"
	"collab-service/internal/db"
)

func main() {
	configPath := flag.String("config", os.Getenv("NEXUS_CONFIG"), "Path to configuration file")
	action := flag.String("action", "migrate", "Action to perform (migrate, status)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	database, err := db.Open(ctx, cfg.Database, slog.Default())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	switch *action {
	case "migrate":
		if err := db.Migrate(ctx, database); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("Migration completed successfully")
	case "status":
		status, err := db.Status(ctx, database)
		if err != nil {
			log.Fatalf("Status check failed: %v", err)
		}
		tables := make([]string, 0, len(status))
		for table := range status {
			tables = append(tables, table)
		}
		sort.Strings(tables)
		for _, table := range tables {
			state := "missing"
			if status[table] {
				state = "present"
			}
			fmt.Printf("%-28s %s\n", table, state)
		}
	default:
		log.Fatalf("Unknown action: %s", *action)
	}
}
