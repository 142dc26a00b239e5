package scanner

import (
	"context"
	"errors"
	"time"

	"github.com/jyouni2001/LodgingSimulator-sub001/internal/models"
)

// ErrNoSource returned when a cache is built without an object source
var ErrNoSource = errors.New("no object source configured")

// ObjectSource enumerates world objects carrying a category tag
// Must be idempotent within a scan's cache window
type ObjectSource interface {
	GetObjects(ctx context.Context, category models.Category) ([]models.WorldObject, error)
}

// Clock abstracts time for cache expiry
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock wall clock with monotonic readings
var SystemClock Clock = systemClock{}
