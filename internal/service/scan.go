package service

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jyouni2001/LodgingSimulator-sub001/internal/config"
	"github.com/jyouni2001/LodgingSimulator-sub001/internal/eventbus"
	"github.com/jyouni2001/LodgingSimulator-sub001/internal/models"
	"github.com/jyouni2001/LodgingSimulator-sub001/internal/repository"
	"github.com/jyouni2001/LodgingSimulator-sub001/internal/scanner"
)

// ErrScanInProgress a scan was requested while another one was running
var ErrScanInProgress = errors.New("room scan already in progress")

// Scope floors covered by one scan; nil Floors means every active floor
type Scope struct {
	Floors []int
}

// AllFloors scans every active floor
func AllFloors() Scope { return Scope{} }

// Floor scans a single level
func Floor(level int) Scope { return Scope{Floors: []int{level}} }

// InvalidRoom a region that failed validation, kept for diagnostics
type InvalidRoom struct {
	RoomID  string   `json:"room_id"`
	Floor   int      `json:"floor"`
	Cells   int      `json:"cells"`
	Sunbed  bool     `json:"sunbed"`
	Reasons []string `json:"reasons"`
}

// ScanReport outcome of one completed scan
type ScanReport struct {
	ScanID       string                  `json:"scan_id"`
	Floors       []int                   `json:"floors,omitempty"`
	StartedAt    time.Time               `json:"started_at"`
	Duration     time.Duration           `json:"duration"`
	ObjectCounts map[models.Category]int `json:"object_counts"`
	Cells        int                     `json:"cells"`
	Regions      int                     `json:"regions"`
	Iterations   int                     `json:"iterations"`
	Aborted      int                     `json:"aborted"`
	AbortedCells int                     `json:"aborted_cells"`
	Rooms        []string                `json:"rooms"`
	Invalid      []InvalidRoom           `json:"invalid,omitempty"`
	Added        []string                `json:"added,omitempty"`
	Removed      []string                `json:"removed,omitempty"`
	Updated      []string                `json:"updated,omitempty"`
	Collisions   int                     `json:"collisions,omitempty"`
}

// RoomScanService runs the scan pipeline and answers room queries
// At most one scan runs at a time; requests arriving meanwhile are dropped
type RoomScanService struct {
	config *config.Config
	logger *zap.Logger

	bus       *eventbus.Bus
	floors    scanner.FloorProvider
	cache     *scanner.ObjectCache
	segmenter *scanner.Segmenter
	validator *scanner.Validator
	factory   *scanner.Factory
	repo      *repository.RoomRepository

	scanning   atomic.Bool
	lastReport atomic.Pointer[ScanReport]

	mu      sync.Mutex
	baseCtx context.Context
	async   sync.WaitGroup

	floorSub *eventbus.Subscription
}

// NewRoomScanService wires the pipeline. bus and presenter may be nil
func NewRoomScanService(
	cfg *config.Config,
	source scanner.ObjectSource,
	floors scanner.FloorProvider,
	presenter scanner.Presenter,
	bus *eventbus.Bus,
	logger *zap.Logger,
) *RoomScanService {
	if bus == nil {
		bus = eventbus.New(logger)
	}
	if floors == nil {
		floors = scanner.NewStoreyFloors(cfg.Scan.StoreyHeight, max(cfg.Scan.FloorCount, 1), bus)
	}

	validator := scanner.NewValidator(cfg.Rules, cfg.Quality, cfg.Scan.CellSize)
	factory := scanner.NewFactory(cfg.Scan.CellSize, cfg.Pricing, validator, presenter, logger)

	s := &RoomScanService{
		config: cfg,
		logger: logger,
		bus:    bus,
		floors: floors,
		cache:  scanner.NewObjectCache(source, cfg.Scan.CacheTTL, nil, logger),
		segmenter: scanner.NewSegmenter(scanner.Limits{
			MaxIterations: cfg.Scan.MaxIterations,
			MaxRegionSize: cfg.Scan.MaxRegionSize,
		}, logger),
		validator: validator,
		factory:   factory,
		repo:      repository.NewRoomRepository(factory, floors, bus, logger),
		baseCtx:   context.Background(),
	}

	s.floorSub = bus.SubscribeFloorChanged("room-scan-service", s.onFloorChanged)
	return s
}

// Start runs the trigger loop until ctx is done
func (s *RoomScanService) Start(ctx context.Context) error {
	s.mu.Lock()
	s.baseCtx = ctx
	s.mu.Unlock()

	s.logger.Info("Starting room scan service",
		zap.String("trigger_mode", s.config.Scan.TriggerMode),
		zap.Bool("active_floor_only", s.config.Scan.ActiveFloorOnly),
	)

	switch s.config.Scan.TriggerMode {
	case config.TriggerPolling:
		return s.startPollingMode(ctx)
	case config.TriggerEvents:
		s.runLogged(ctx, s.defaultScope())
		<-ctx.Done()
		return nil
	case config.TriggerManual:
		<-ctx.Done()
		return nil
	}
	return errors.New("unsupported trigger mode: " + s.config.Scan.TriggerMode)
}

func (s *RoomScanService) startPollingMode(ctx context.Context) error {
	ticker := time.NewTicker(s.config.Scan.Interval)
	defer ticker.Stop()

	s.logger.Info("Starting polling mode",
		zap.Duration("interval", s.config.Scan.Interval),
	)

	s.runLogged(ctx, s.defaultScope())

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.runLogged(ctx, s.defaultScope())
		}
	}
}

func (s *RoomScanService) runLogged(ctx context.Context, scope Scope) {
	if _, err := s.RunScan(ctx, scope); err != nil && !errors.Is(err, ErrScanInProgress) {
		s.logger.Error("Room scan failed", zap.Error(err))
	}
}

// Close drops the floor subscription and waits for queued async scans
func (s *RoomScanService) Close() {
	s.floorSub.Unsubscribe()
	s.async.Wait()
}

// ScanNow requests a scan of the default scope without waiting for it
func (s *RoomScanService) ScanNow() {
	s.scanAsync(s.defaultScope(), "scan_now")
}

// ScanFloor requests a scan limited to one level without waiting for it
func (s *RoomScanService) ScanFloor(level int) {
	s.scanAsync(Floor(level), "scan_floor")
}

func (s *RoomScanService) scanAsync(scope Scope, trigger string) {
	if s.scanning.Load() {
		s.logger.Warn("Scan request dropped, scan in progress",
			zap.String("trigger", trigger),
			zap.Ints("floors", scope.Floors),
		)
		return
	}

	s.mu.Lock()
	ctx := s.baseCtx
	s.mu.Unlock()

	s.async.Add(1)
	go func() {
		defer s.async.Done()
		s.runLogged(ctx, scope)
	}()
}

func (s *RoomScanService) onFloorChanged(ev eventbus.FloorChanged) error {
	if !s.floors.IsFloorActive(ev.Floor) {
		s.logger.Debug("Ignoring change to inactive floor",
			zap.String("source", ev.Source),
			zap.Int("floor", ev.Floor),
		)
		return nil
	}
	s.ScanFloor(ev.Floor)
	return nil
}

// defaultScope the active floor when ActiveFloorOnly is set, otherwise every active floor
func (s *RoomScanService) defaultScope() Scope {
	if s.config.Scan.ActiveFloorOnly {
		return Floor(s.floors.ActiveFloor())
	}
	return AllFloors()
}

// RunScan executes one full scan synchronously. Phases run in order on the
// calling goroutine and yield between each other
func (s *RoomScanService) RunScan(ctx context.Context, scope Scope) (*ScanReport, error) {
	if !s.scanning.CompareAndSwap(false, true) {
		s.logger.Warn("Scan rejected, scan in progress", zap.Ints("floors", scope.Floors))
		return nil, ErrScanInProgress
	}
	defer s.scanning.Store(false)

	report := &ScanReport{
		ScanID:       uuid.NewString(),
		Floors:       scope.Floors,
		StartedAt:    time.Now(),
		ObjectCounts: make(map[models.Category]int, len(models.Categories)),
	}
	logger := s.logger.With(zap.String("scan_id", report.ScanID))

	// cache refresh
	phase := time.Now()
	objects := s.cache.Snapshot(ctx, models.Categories)
	for _, cat := range models.Categories {
		report.ObjectCounts[cat] = len(objects[cat])
		if len(objects[cat]) == 0 {
			logger.Warn("No objects found for tag", zap.String("category", string(cat)))
		}
	}
	logger.Debug("Object cache refreshed", zap.Duration("elapsed", time.Since(phase)))
	runtime.Gosched()

	// grid build
	phase = time.Now()
	grid := scanner.BuildGrid(objects, scanner.GridOptions{
		CellSize:        s.config.Scan.CellSize,
		VerticalOffsets: s.config.Scan.VerticalOffsets,
		Floors:          s.floors,
	}, s.floorFilter(scope))
	report.Cells = grid.Len()
	logger.Debug("Grid built",
		zap.Int("cells", grid.Len()),
		zap.Int("skipped_objects", grid.SkippedCount()),
		zap.Duration("elapsed", time.Since(phase)),
	)
	runtime.Gosched()

	// segmentation
	phase = time.Now()
	seg := s.segmenter.Segment(grid)
	report.Regions = len(seg.Regions)
	report.Iterations = seg.Iterations
	report.Aborted = seg.Aborted
	report.AbortedCells = seg.AbortedCells
	logger.Debug("Segmentation finished",
		zap.Int("region_count", len(seg.Regions)),
		zap.Int("aborted", seg.Aborted),
		zap.Duration("elapsed", time.Since(phase)),
	)
	runtime.Gosched()

	// validation
	phase = time.Now()
	verdicts := make([]scanner.Verdict, len(seg.Regions))
	for i, region := range seg.Regions {
		verdicts[i] = s.validator.Validate(region)
	}
	logger.Debug("Regions validated", zap.Duration("elapsed", time.Since(phase)))
	runtime.Gosched()

	// materialization
	phase = time.Now()
	rooms := make([]*models.Room, 0, len(seg.Regions))
	for i, region := range seg.Regions {
		room := s.factory.Materialize(region, verdicts[i])
		if !verdicts[i].Valid {
			report.Invalid = append(report.Invalid, InvalidRoom{
				RoomID:  room.ID,
				Floor:   room.FloorLevel,
				Cells:   len(room.Cells),
				Sunbed:  verdicts[i].Sunbed,
				Reasons: verdicts[i].Reasons,
			})
			continue
		}
		rooms = append(rooms, room)
	}
	logger.Debug("Rooms materialized",
		zap.Int("valid", len(rooms)),
		zap.Int("invalid", len(report.Invalid)),
		zap.Duration("elapsed", time.Since(phase)),
	)
	runtime.Gosched()

	// diff
	summary := s.repo.Update(repository.ScanResult{
		ScanID: report.ScanID,
		Floors: scope.Floors,
		Rooms:  rooms,
	})
	for _, room := range rooms {
		report.Rooms = append(report.Rooms, room.ID)
	}
	report.Added = summary.Added
	report.Removed = summary.Removed
	report.Updated = summary.Updated
	report.Collisions = summary.Collisions
	report.Duration = time.Since(report.StartedAt)
	s.lastReport.Store(report)

	logger.Info("Room scan completed",
		zap.Ints("floors", scope.Floors),
		zap.Int("rooms", len(rooms)),
		zap.Int("invalid", len(report.Invalid)),
		zap.Int("aborted", report.Aborted),
		zap.Int("added", len(summary.Added)),
		zap.Int("removed", len(summary.Removed)),
		zap.Int("updated", len(summary.Updated)),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}

func (s *RoomScanService) floorFilter(scope Scope) scanner.FloorFilter {
	if scope.Floors == nil {
		return s.floors.IsFloorActive
	}
	levels := make(map[int]bool, len(scope.Floors))
	for _, l := range scope.Floors {
		levels[l] = true
	}
	return func(level int) bool { return levels[level] }
}

// InvalidateCache forces the next scan to re-query the given categories, or all
func (s *RoomScanService) InvalidateCache(categories ...models.Category) {
	s.cache.Invalidate(categories...)
}

// Scanning reports whether a scan is running
func (s *RoomScanService) Scanning() bool {
	return s.scanning.Load()
}

// LastReport returns the most recent completed scan, nil before the first
func (s *RoomScanService) LastReport() *ScanReport {
	return s.lastReport.Load()
}

func (s *RoomScanService) Bus() *eventbus.Bus { return s.bus }
func (s *RoomScanService) Floors() scanner.FloorProvider { return s.floors }
func (s *RoomScanService) Repository() *repository.RoomRepository { return s.repo }

func (s *RoomScanService) GetRoomsByFloor(level int) []*models.Room {
	return s.repo.GetByFloor(level)
}

func (s *RoomScanService) GetRoomAtPosition(pos models.Vec3) (*models.Room, error) {
	return s.repo.GetAtPosition(pos)
}

func (s *RoomScanService) GetAvailableRooms() []*models.Room {
	return s.repo.GetAvailable()
}

func (s *RoomScanService) Occupy(roomID, occupantID string) bool {
	return s.repo.Occupy(roomID, occupantID)
}

func (s *RoomScanService) Release(roomID string) bool {
	return s.repo.Release(roomID)
}
