package main

import (
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"time"

	"payment-gateway-backend/internal/config"
	"payment-gateway-backend/internal/integrations/ledger"
	"payment-gateway-backend/internal/processor"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if err := godotenv.Load(); err != nil {
		logger.Info("No .env file found, relying on system env")
	}

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	// Initialize layers
	client := ledger.NewClient(cfg, logger)

	var policy processor.DecisionPolicy
	switch cfg.DecisionPolicy {
	case "random":
		policy = processor.NewRandomPolicy(70, rand.NewSource(time.Now().UnixNano()))
	default:
		policy = processor.ThresholdPolicy{}
	}
	logger.Infof("Using %s decision policy", cfg.DecisionPolicy)

	proc := processor.New(client, policy, cfg.ProcessingDelay, logger)
	h := processor.NewHandler(proc, client, logger)

	// Periodically settle transactions stuck in PENDING.
	sweeper := processor.NewSweeper(proc, client, cfg.SweepOlderThan, logger)
	cronRunner, err := sweeper.Start(cfg.SweepSchedule)
	if err != nil {
		logger.Fatalf("Failed to schedule pending sweep: %v", err)
	}
	defer cronRunner.Stop()

	// Setup router
	r := mux.NewRouter()
	h.Routes(r)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.ProcessorPort)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	logger.Infof("Starting payment processor on %s", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("Server failed: %v", err)
	}
}
