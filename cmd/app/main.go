// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"codeberg.org/oliverandrich/regdesk/internal/config"
	"codeberg.org/oliverandrich/regdesk/internal/database"
	"codeberg.org/oliverandrich/regdesk/internal/server"
	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:   "regdesk",
		Usage:  "Run the registration desk API",
		Flags:  config.Flags(),
		Action: server.Run,
		Commands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "Inspect or roll back the database schema",
				Commands: []*cli.Command{
					{Name: "status", Usage: "List migrations and whether they are applied", Action: migrateStatus},
					{Name: "down", Usage: "Roll back the newest migration", Action: migrateDown},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func migrateStatus(ctx context.Context, cmd *cli.Command) error {
	db, err := database.Connect(cmd.String("database-dsn"))
	if err != nil {
		return err
	}
	defer db.Close()

	states, err := database.Status(ctx, db.DB)
	if err != nil {
		return err
	}
	for _, s := range states {
		state := "pending"
		if s.Applied {
			state = "applied"
		}
		fmt.Fprintf(cmd.Root().Writer, "%05d  %-8s %s\n", s.Version, state, s.Source)
	}
	return nil
}

func migrateDown(ctx context.Context, cmd *cli.Command) error {
	db, err := database.Connect(cmd.String("database-dsn"))
	if err != nil {
		return err
	}
	defer db.Close()

	version, err := database.MigrateDown(ctx, db.DB)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.Root().Writer, "rolled back %05d\n", version)
	return nil
}
