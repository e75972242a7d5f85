package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/joho/godotenv"

	base "github.com/qgg21ypuLukeS/NucloFlo"
	"github.com/qgg21ypuLukeS/NucloFlo/config"
	"github.com/qgg21ypuLukeS/NucloFlo/ncbi"
	"github.com/qgg21ypuLukeS/NucloFlo/service"
)

func main() {
	// Load the .env file from the working directory if present
	dir, err := os.Getwd()
	if err == nil {
		if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil {
			fmt.Println("no .env file found, using environment as-is")
		}
	}

	cfg := config.FromEnv()

	var logger log.Logger
	{
		logger = log.NewLogfmtLogger(os.Stderr)
		logger = log.NewSyncLogger(logger)
		logger = level.NewFilter(logger, level.AllowInfo())
		logger = log.With(logger,
			"svc", "blast-bridge",
			"ts", log.DefaultTimestampUTC,
			"caller", log.DefaultCaller,
		)
	}

	level.Info(logger).Log("msg", "blast bridge service starting")
	defer level.Info(logger).Log("msg", "blast bridge service ended")

	searcher := ncbi.NewClient(cfg.BlastBaseURL, cfg.PollInterval,
		log.With(logger, "component", "NCBIClient"))

	var svc service.Service
	{
		svc = service.NewBlastService(log.With(logger, "component", "BlastService"),
			searcher, cfg.BlastDatabase)
	}

	handler := base.MakeHttpHandler(svc, cfg)

	errs := make(chan error)
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		errs <- fmt.Errorf("%s", <-c)
	}()

	// a remote alignment search can run for many minutes, so the write
	// timeout has to cover the full request deadline
	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      handler,
		ReadTimeout:  1 * time.Minute,
		WriteTimeout: cfg.RequestDeadline + 1*time.Minute,
		IdleTimeout:  1 * time.Minute,
	}

	go func() {
		level.Info(logger).Log("msg", "HTTP server started", "port", cfg.HTTPPort)
		errs <- server.ListenAndServe()
	}()

	level.Error(logger).Log("exit", <-errs)
}
