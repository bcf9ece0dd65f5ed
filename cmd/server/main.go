package main

import (
	"fmt"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"geoestate/server/config"
	"geoestate/server/internal/api"
	"geoestate/server/internal/database"
	"geoestate/server/internal/engine"
	"geoestate/server/internal/processor"
	"geoestate/server/internal/queue"
	"geoestate/server/internal/scheduler"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	logger.Infof("Using database at: %s", cfg.DBPath)
	store, err := database.Open(cfg.DBPath, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer store.Close()

	// Seed neighborhood boundaries when a reference file is configured
	if cfg.NeighborhoodsFile != "" {
		logger.Infof("Loading neighborhoods from: %s", cfg.NeighborhoodsFile)
		hoods, err := config.LoadNeighborhoods(cfg.NeighborhoodsFile)
		if err != nil {
			logger.WithError(err).Fatal("Failed to load neighborhoods file")
		}
		if err := store.SaveNeighborhoods(hoods); err != nil {
			logger.WithError(err).Fatal("Failed to save neighborhoods")
		}
	}

	eng := engine.New(cfg.EngineMaxResults, logger)

	// Listing ingest pipeline: queue -> batch processor -> store -> engine
	listingQueue := queue.NewListingQueue(cfg.BatchProcessing.QueueSize, logger)
	batchProcessor := processor.NewBatchProcessor(store, eng, listingQueue, cfg, logger)
	batchProcessor.Start()
	listingQueue.Start()
	defer listingQueue.Close()
	defer batchProcessor.Stop()

	// Periodic full reload; the startup run populates the engine
	refresher := scheduler.NewRefresher(store, eng,
		time.Duration(cfg.RefreshInterval)*time.Second, logger)
	refresher.Start()
	defer refresher.Stop()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.Default())

	api.SetupRoutes(router, eng, listingQueue, logger)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logger.Infof("Starting server on port %d", cfg.Port)
	if err := router.Run(addr); err != nil {
		logger.WithError(err).Fatal("Server failed to start")
	}
}
