package collab

import (
	"time"

	"collabdoc/config"
	"collabdoc/internal/engine"
	"collabdoc/internal/realtime"

	"github.com/redis/go-redis/v9"
)

// WebsocketChannels returns a factory dialing the hub at baseURL with the
// given bearer token.
func WebsocketChannels(baseURL, token string) ChannelFactory {
	return func(documentID string) realtime.Channel {
		return realtime.NewWebsocketChannel(baseURL, token, documentID)
	}
}

// RedisChannels returns a factory sharing one Redis client across all
// document topics.
func RedisChannels(cfg config.RedisConfig) ChannelFactory {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return func(documentID string) realtime.Channel {
		return realtime.NewRedisChannel(client, documentID)
	}
}

// Debounce returns the configured flush quiet period for Open, falling
// back to the engine default when unset.
func Debounce(cfg config.SyncConfig) time.Duration {
	if cfg.Debounce <= 0 {
		return engine.DefaultDebounce
	}
	return cfg.Debounce
}
