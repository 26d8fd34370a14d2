package main

import (
	"redlink/config"
	"redlink/models"
	"redlink/routes"
	"redlink/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(&models.User{}, &models.Post{}, &models.Upvote{})

	rdb, err := utils.InitRedis(cfg)
	if err != nil {
		utils.Sugar.Fatalf("redis unavailable: %v", err)
	}

	r := routes.SetupRouter(cfg, db, rdb)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
