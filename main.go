package main

import (
	"context"
	"time"

	"github.com/cppla/dealerintake/config"
	"github.com/cppla/dealerintake/routes"
	"github.com/cppla/dealerintake/services"
	"github.com/cppla/dealerintake/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	store := config.InitStorage(cfg, utils.Logger.Named("storage"))

	opts := []services.IntakeOption{
		services.WithRootFolderID(cfg.RegistrationFolderID),
		services.WithLogger(utils.Logger.Named("intake")),
	}
	if cache := utils.NewRedisFolderCache(utils.GetRedis(cfg), time.Duration(cfg.RootCacheTTLSeconds)*time.Second); cache != nil {
		opts = append(opts, services.WithFolderCache(cache))
	}
	intake := services.NewIntakeService(store, opts...)

	r := routes.SetupRouter(cfg, intake)

	// Remove staged uploads a crashed process left behind
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	sweep := time.Duration(cfg.TempSweepMinutes) * time.Minute
	utils.StartTempSweeper(sweepCtx, cfg.UploadTempDir, sweep, sweep)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r, stopSweep); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
