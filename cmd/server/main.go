package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"oddeven-service/internal/config"
	"oddeven-service/internal/db"
	"oddeven-service/internal/detector"
	httpapi "oddeven-service/internal/http"
	"oddeven-service/internal/ocr"
	"oddeven-service/internal/repository"
	"oddeven-service/internal/rules"
	"oddeven-service/internal/service"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, v, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	schedule, err := rules.NewSchedule(cfg.Schedule.Version, cfg.Schedule.Weekdays, cfg.Schedule.Exceptions)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid restriction schedule")
	}
	schedules := rules.NewRegistry(schedule)

	config.Watch(v, func(next *config.Config) {
		updated, err := rules.NewSchedule(next.Schedule.Version, next.Schedule.Weekdays, next.Schedule.Exceptions)
		if err != nil {
			log.Error().Err(err).Msg("rejected schedule update")
			return
		}
		schedules.Swap(updated)
		log.Info().Str("version", updated.Version()).Msg("restriction schedule reloaded")
	})

	gdb, err := db.Connect(cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	repo := repository.NewDecisionRepository(gdb, log)
	det := detector.NewHTTPDetector(cfg.Detector.Endpoint, cfg.Detector.MinConfidence, cfg.Detector.Timeout)
	extractor := ocr.NewSpaceClient(cfg.OCR.Endpoint, cfg.OCR.APIKey, cfg.OCR.Language, cfg.OCR.Engine, cfg.OCR.Timeout)

	pipeline := service.NewPipelineService(repo, det, extractor, schedules, log)
	handler := httpapi.NewHandler(pipeline, schedules, cfg, log)
	router := httpapi.NewRouter(cfg, handler)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Info().Str("addr", addr).Msg("starting odd-even enforcement service")
	if err := router.Run(addr); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
