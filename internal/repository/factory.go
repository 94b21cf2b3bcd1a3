package repository

import (
	"log"

	"github.com/roomninja/roomninja/internal/config"
	"github.com/roomninja/roomninja/internal/repository/memory"
	"github.com/roomninja/roomninja/internal/repository/redis"
)

// New creates the meeting-info and subscription repositories from
// configuration: Redis when enabled, in-memory otherwise. The returned
// cleanup closes any underlying connection and is safe to defer.
func New(cfg config.RedisConfig) (MeetingInfoRepository, SubscriptionRepository, func(), error) {
	if cfg.Enabled {
		log.Printf("Using Redis repository at %s:%s", cfg.Host, cfg.Port)
		repo, err := redis.NewRepository(cfg)
		if err != nil {
			return nil, nil, nil, err
		}
		cleanup := func() {
			if err := repo.Close(); err != nil {
				log.Printf("Error closing Redis connection: %v", err)
			}
		}
		return repo, repo, cleanup, nil
	}

	log.Printf("Using in-memory repository")
	return memory.NewMeetingInfoRepository(), memory.NewSubscriptionRepository(), func() {}, nil
}
