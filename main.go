package main

import (
	"context"
	"log"

	"beniyu-bot/bot"
	"beniyu-bot/config"
	"beniyu-bot/database"
	"beniyu-bot/handlers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	var backend database.BaseDatabase
	switch cfg.DatabaseBackend {
	case "sqlite":
		backend = database.NewSqliteDatabase(cfg.SqlitePath)
	default:
		backend = database.NewMongoDatabase(cfg.MongoURI, cfg.MongoDatabase)
	}
	db := database.NewGuildDatabase(backend)
	if err := db.Connect(context.Background()); err != nil {
		log.Fatalf("Error connecting to database: %v", err)
	}

	b, err := bot.New(cfg, db)
	if err != nil {
		log.Fatalf("Error creating bot: %v", err)
	}
	defer b.Close()

	handlers.Register(b)

	b.Run()
}
