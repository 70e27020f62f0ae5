package main

import (
	"context"
	"log"
	"time"

	"github.com/dmitrijs2005/worklog/internal/client/config"
	"github.com/dmitrijs2005/worklog/internal/client/remote"
	"github.com/dmitrijs2005/worklog/internal/client/remote/migrations"
)

// migrate applies the remote PostgreSQL schema. It accepts the client's
// config file and flags, of which it only uses the DSN.
func main() {

	cfg := config.LoadConfig()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := remote.OpenPostgres(cfg.RemoteDSN)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer db.Close()

	if err := migrations.Up(ctx, db); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	log.Println("remote schema is up to date")

}
