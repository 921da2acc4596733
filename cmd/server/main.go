package main

import (
	"fmt"
	"log"

	"pharma-crm/internal/config"
	"pharma-crm/internal/database"
	"pharma-crm/internal/obs"
	"pharma-crm/internal/server"
)

func main() {
	cfg := config.Load()
	obs.Init()
	db := database.Init(cfg.DBDSN, cfg.AdminEmail, cfg.AdminPassword)

	r := server.NewRouter(db, cfg)

	addr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("starting server on %s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
