package main

import (
	"context"
	"errors"

	"lead_broker_backend/internal/buyers/repository"
	"lead_broker_backend/internal/geo"
	"lead_broker_backend/internal/maps"
	"lead_broker_backend/platform/config"
	"lead_broker_backend/platform/db"
	"lead_broker_backend/platform/logger"
)

const batchSize = 25

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting buyer geocode backfill")

	if cfg.UsesMemoryStore() {
		log.Info("memory store configured, nothing to backfill")
		return
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	buyers := repository.NewPostgres(pool)
	// The maps service paces Nominatim requests itself.
	mapsService := maps.NewService(cfg, log)

	for {
		batch, err := buyers.ListMissingCenter(ctx, batchSize)
		if err != nil {
			log.Error("failed to list buyers", "error", err)
			return
		}
		if len(batch) == 0 {
			log.Info("no buyers left to geocode")
			return
		}

		progress := false
		for _, buyer := range batch {
			point, err := mapsService.Geocode(ctx, buyer.BaseAddress)
			if err != nil {
				if errors.Is(err, geo.ErrNoResult) {
					log.Info("no geocode result", "buyerId", buyer.ID, "address", buyer.BaseAddress)
				} else {
					log.Error("geocode failed", "buyerId", buyer.ID, "error", err)
				}
				continue
			}

			if err := buyers.SetCenter(ctx, buyer.ID, point); err != nil {
				log.Error("failed to update buyer", "buyerId", buyer.ID, "error", err)
				continue
			}

			log.Info("buyer geocoded", "buyerId", buyer.ID, "lat", point.Lat, "lon", point.Lon)
			progress = true
		}

		if !progress {
			log.Info("no geocode progress in batch, stopping")
			return
		}
	}
}
