package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/jyouni2001/LodgingSimulator-sub001/internal/models"
)

// objectsResponse body of GET /objects?category=<tag>
type objectsResponse struct {
	Category string               `json:"category"`
	Objects  []models.WorldObject `json:"objects"`
}

// HTTPObjectSource pulls tagged objects from the world editor API
type HTTPObjectSource struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewHTTPObjectSource creates a client against baseURL
func NewHTTPObjectSource(baseURL string, timeout time.Duration, retries int, logger *zap.Logger) *HTTPObjectSource {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(retries).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Accept", "application/json")

	return &HTTPObjectSource{
		httpClient: client,
		logger:     logger,
	}
}

// GetObjects fetches every object carrying category
func (s *HTTPObjectSource) GetObjects(ctx context.Context, category models.Category) ([]models.WorldObject, error) {
	var response objectsResponse
	resp, err := s.httpClient.R().
		SetContext(ctx).
		SetQueryParam("category", string(category)).
		SetResult(&response).
		Get("/objects")
	if err != nil {
		return nil, fmt.Errorf("failed to call world object API: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("world object API returned status %d", resp.StatusCode())
	}

	objects := response.Objects
	for i := range objects {
		objects[i].Category = category
	}

	s.logger.Debug("Fetched world objects",
		zap.String("category", string(category)),
		zap.Int("count", len(objects)),
	)
	return objects, nil
}
