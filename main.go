package main

import (
	"context"
	"time"

	"github.com/connectbuzz/connectbuzz/config"
	"github.com/connectbuzz/connectbuzz/images"
	"github.com/connectbuzz/connectbuzz/realtime"
	"github.com/connectbuzz/connectbuzz/routes"
	"github.com/connectbuzz/connectbuzz/services"
	"github.com/connectbuzz/connectbuzz/store"
	"github.com/connectbuzz/connectbuzz/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	if rc := utils.InitRedis(cfg); rc != nil {
		defer rc.Close()
	}

	users, posts, closeStore := openStore(cfg)
	defer closeStore()

	imgs, err := images.New(cfg)
	if err != nil {
		utils.Sugar.Fatalf("image store: %v", err)
	}

	tokens := utils.NewTokenManager(cfg.JWTSecret, time.Duration(cfg.TokenTTLHours)*time.Hour)
	hub := realtime.NewHub()
	go hub.Run()

	r := routes.SetupRouter(cfg, routes.Deps{
		Identity: services.NewIdentityService(users, tokens, cfg.IsAdminEmail),
		Content:  services.NewContentService(posts, users, imgs),
		Tokens:   tokens,
		Hub:      hub,
	})

	utils.Sugar.Infof("Starting server on port %s (graceful, %s store)", cfg.AppPort, cfg.DBDriver)
	if err := utils.GraceServer(":"+cfg.AppPort, r, hub.Close); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}

// openStore connects the backend selected by DB_DRIVER and returns its stores with a closer.
func openStore(cfg config.AppConfig) (store.UserStore, store.PostStore, func()) {
	if cfg.DBDriver == config.DriverMongo {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		client, err := config.ConnectMongo(ctx, cfg)
		if err != nil {
			utils.Sugar.Fatalf("mongo: %v", err)
		}
		txn, err := config.MongoTransactions(ctx, client)
		if err != nil {
			utils.Sugar.Fatalf("mongo: %v", err)
		}
		if !txn {
			utils.Sugar.Warn("mongo deployment has no transactions; follow graph updates fall back to ordered writes")
		}
		ms := store.NewMongoStore(client, client.Database(cfg.DBName), txn)
		if err := ms.EnsureIndexes(ctx); err != nil {
			utils.Sugar.Fatalf("mongo indexes: %v", err)
		}
		return ms.Users, ms.Posts, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(ctx)
		}
	}

	db, err := config.OpenDatabase(cfg, store.Models...)
	if err != nil {
		utils.Sugar.Fatalf("database: %v", err)
	}
	gs := store.NewGormStore(db)
	return gs.Users, gs.Posts, func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
