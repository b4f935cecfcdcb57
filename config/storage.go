package config

import (
	"context"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/cppla/dealerintake/storage"
)

var provider storage.Provider

// InitStorage builds the storage provider selected by StorageBackend and wraps
// it with latency metrics. It exits the process when the provider cannot be built.
func InitStorage(cfg AppConfig, logger *zap.Logger) storage.Provider {
	if provider != nil {
		return provider
	}

	switch cfg.StorageBackend {
	case StorageBackendMemory:
		log.Println("using in-memory storage backend; documents are lost on exit")
		provider = storage.Instrument(storage.NewMemoryProvider())
	default:
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		drv, err := storage.NewDriveProviderFromFile(ctx, cfg.GoogleCredentialsFile, logger)
		if err != nil {
			log.Fatalf("failed to initialize google drive client: %v", err)
		}
		provider = storage.Instrument(drv)
	}
	return provider
}

// Storage provides access to the initialized provider.
func Storage() storage.Provider {
	if provider == nil {
		log.Fatal("storage not initialized, call InitStorage first")
	}
	return provider
}
