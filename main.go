package main

import (
	"errors"
	"net/http"
	"os"

	"server/src/api"
	"server/src/config"
	"server/src/utils"
	"server/src/worker"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	// Local overrides for credentials; missing .env is fine.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig("./settings", os.Getenv("ENV"))
	if err != nil {
		logrus.WithError(err).Fatal("Error while loading config")
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.ToFile, cfg.Logging.FilePath)

	errC, err := run(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Couldn't run")
	}

	if err := <-errC; err != nil {
		logger.WithError(err).Error("Error while running")
	}
}

func run(cfg *config.Config, logger *logrus.Logger) (<-chan error, error) {
	errC := make(chan error, 1)

	var httpServer *http.Server
	if cfg.Service.Type == config.WORKER {
		// Worker runs the balance reconciliation sweeps and only serves /alive.
		server, err := worker.NewServer(cfg, logger)
		if err != nil {
			return nil, err
		}
		httpServer = worker.NewHTTPServer(server, cfg)
	} else {
		server, err := api.NewServer(cfg, logger)
		if err != nil {
			return nil, err
		}
		httpServer = api.NewHTTPServer(server, cfg)
	}

	go func() {
		logger.WithField("port", cfg.Service.Port).Info("Starting server")

		// "ListenAndServe always returns a non-nil error. After Shutdown or Close, the returned error is
		// ErrServerClosed."
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("An error raised while setting up server")
			errC <- err
		}
	}()
	return errC, nil
}
