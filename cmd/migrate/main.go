package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"bookcollection/internal/book"
	"bookcollection/internal/config"
	"bookcollection/internal/store"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

func main() {
	var (
		command = flag.String("command", "up", "Migration command: up, down, status, create, indexes")
		name    = flag.String("name", "", "Name for 'create' command")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	ctx := context.Background()

	if *command == "indexes" {
		ensureMongoIndexes(ctx, cfg)
		return
	}

	dir := cfg.MigrationsDir
	if *command == "create" {
		if *name == "" {
			log.Fatal("Name is required for 'create' command")
		}
		if err := goose.Create(nil, dir, *name, "sql"); err != nil {
			log.Fatalf("Failed to create migration: %v", err)
		}
		fmt.Printf("Migration created: %s\n", *name)
		return
	}

	pool, err := store.OpenPostgres(ctx, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatalf("Failed to set dialect: %v", err)
	}

	switch *command {
	case "up":
		if err := goose.Up(db, dir); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
		fmt.Println("Migrations applied successfully")
	case "down":
		if err := goose.Down(db, dir); err != nil {
			log.Fatalf("Failed to rollback migrations: %v", err)
		}
		fmt.Println("Migrations rolled back successfully")
	case "status":
		if err := goose.Status(db, dir); err != nil {
			log.Fatalf("Failed to check migration status: %v", err)
		}
	default:
		log.Fatalf("Unknown command: %s. Use: up, down, status, create, indexes", *command)
	}
}

func ensureMongoIndexes(ctx context.Context, cfg config.Config) {
	client, err := store.OpenMongo(ctx, cfg.MongoURI)
	if err != nil {
		log.Fatalf("Failed to connect to mongo: %v", err)
	}
	defer func() { _ = store.CloseMongo(client, cfg.DBTimeout) }()

	books := client.Database(cfg.MongoDatabase).Collection(cfg.MongoCollection)
	names, err := book.NewMongoRepo(books, cfg.DBTimeout).EnsureIndexes(ctx)
	if err != nil {
		log.Fatalf("Failed to create indexes: %v", err)
	}
	fmt.Printf("Indexes ensured on %s.%s: %v\n", cfg.MongoDatabase, cfg.MongoCollection, names)
}
