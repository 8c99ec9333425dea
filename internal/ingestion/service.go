package ingestion

import (
	"github.com/codepulse-dev/codepulse/internal/core/language"
	"github.com/codepulse-dev/codepulse/internal/core/storage"
	"github.com/gin-gonic/gin"
)

type Service struct {
	store            storage.EventStore
	normalizer       *language.Normalizer
	maxBodySizeBytes int
}

func NewService(store storage.EventStore, normalizer *language.Normalizer, maxBodySizeMB int) *Service {
	if store == nil {
		panic("ingestion: store must not be nil")
	}
	if normalizer == nil {
		panic("ingestion: normalizer must not be nil")
	}
	if maxBodySizeMB <= 0 {
		maxBodySizeMB = 1 // default to 1MB
	}
	return &Service{
		store:            store,
		normalizer:       normalizer,
		maxBodySizeBytes: maxBodySizeMB * 1024 * 1024,
	}
}

// RegisterRoutes registers the ingestion service routes.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.POST("/v1/heartbeats", s.IngestHandler)
}
