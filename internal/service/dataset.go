package service

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/paulmach/orb/geojson"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/joeblew999/plat-choropleth/internal/choropleth"
	"github.com/joeblew999/plat-choropleth/internal/metrics"
	"github.com/joeblew999/plat-choropleth/internal/topology"
)

var (
	ErrNotReady      = eris.New("service: dataset not loaded yet")
	ErrLoadFailed    = eris.New("service: dataset load failed")
	ErrRegionMissing = eris.New("service: region not found")
)

// DatasetConfig configures a DatasetService.
type DatasetConfig struct {
	Source  string
	Timeout time.Duration
	Client  *http.Client
	Fields  choropleth.Fields
	Format  choropleth.Formatter
	Bus     *EventBus
}

// DatasetService loads the topology document once and serves the resulting
// feature collection read-only.
type DatasetService struct {
	cfg DatasetConfig

	mu    sync.RWMutex
	info  DatasetInfo
	fc    *geojson.FeatureCollection
	stats choropleth.Stats
	err   error

	start sync.Once
	done  chan struct{}
}

// NewDatasetService creates a dataset service in the loading state.
func NewDatasetService(cfg DatasetConfig) *DatasetService {
	if cfg.Bus == nil {
		cfg.Bus = NewEventBus()
	}
	return &DatasetService{
		cfg:  cfg,
		info: DatasetInfo{State: StateLoading, Source: cfg.Source},
		done: make(chan struct{}),
	}
}

// Bus returns the bus dataset events are published on.
func (s *DatasetService) Bus() *EventBus { return s.cfg.Bus }

// Start loads the dataset in the background. Only the first call loads.
func (s *DatasetService) Start(ctx context.Context) {
	s.start.Do(func() {
		go s.load(ctx)
	})
}

// Load loads the dataset synchronously. Only the first call loads; later
// calls wait for and return its outcome.
func (s *DatasetService) Load(ctx context.Context) error {
	s.start.Do(func() { s.load(ctx) })
	_, err := s.Wait(ctx)
	return err
}

func (s *DatasetService) load(ctx context.Context) {
	defer close(s.done)

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	started := time.Now()
	s.mu.Lock()
	s.info.StartedAt = started
	s.mu.Unlock()

	fc, key, size, err := s.fetch(ctx)
	metrics.DatasetLoadSeconds.Observe(time.Since(started).Seconds())

	s.mu.Lock()
	s.info.LoadedAt = time.Now()
	if err != nil {
		s.err = err
		s.info.State = StateFailed
		s.info.Error = err.Error()
	} else {
		s.fc = fc
		s.stats = choropleth.Aggregate(fc, s.cfg.Fields)
		s.info.State = StateReady
		s.info.Object = key
		s.info.Regions = len(fc.Features)
		s.info.Size = formatSize(size)
	}
	info := s.info
	s.mu.Unlock()

	if err != nil {
		metrics.DatasetLoadsTotal.WithLabelValues("failed").Inc()
		zap.L().Error("service: dataset load failed",
			zap.String("source", s.cfg.Source),
			zap.Error(err),
		)
		s.cfg.Bus.Publish(Event{State: StateFailed, Err: err})
		return
	}

	metrics.DatasetLoadsTotal.WithLabelValues("ready").Inc()
	metrics.DatasetRegions.Set(float64(info.Regions))
	zap.L().Info("service: dataset loaded",
		zap.String("source", s.cfg.Source),
		zap.String("object", info.Object),
		zap.Int("regions", info.Regions),
		zap.Duration("took", info.LoadedAt.Sub(started)),
	)
	s.cfg.Bus.Publish(Event{State: StateReady, Object: info.Object, Regions: info.Regions})
}

func (s *DatasetService) fetch(ctx context.Context) (*geojson.FeatureCollection, string, int64, error) {
	data, err := Fetch(ctx, s.cfg.Client, s.cfg.Source)
	if err != nil {
		return nil, "", 0, err
	}
	fc, key, err := topology.Convert(data)
	if err != nil {
		return nil, "", 0, eris.Wrap(err, "service: convert topology")
	}
	return fc, key, int64(len(data)), nil
}

// Done is closed once the load has finished, successfully or not.
func (s *DatasetService) Done() <-chan struct{} { return s.done }

// Wait blocks until the load finishes or ctx ends.
func (s *DatasetService) Wait(ctx context.Context) (*geojson.FeatureCollection, error) {
	select {
	case <-s.done:
		return s.Collection()
	case <-ctx.Done():
		return nil, eris.Wrap(ctx.Err(), "service: wait for dataset")
	}
}

// Info returns a snapshot of the load state.
func (s *DatasetService) Info() DatasetInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.info
}

// Collection returns the loaded feature collection.
func (s *DatasetService) Collection() (*geojson.FeatureCollection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch s.info.State {
	case StateReady:
		return s.fc, nil
	case StateFailed:
		return nil, eris.Wrap(ErrLoadFailed, s.err.Error())
	}
	return nil, ErrNotReady
}

// Stats returns the aggregate statistics of the loaded collection.
func (s *DatasetService) Stats() (choropleth.Stats, error) {
	if _, err := s.Collection(); err != nil {
		return choropleth.Stats{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats, nil
}

// Fields returns the property keys in use.
func (s *DatasetService) Fields() choropleth.Fields { return s.cfg.Fields }

// Format returns the number formatter in use.
func (s *DatasetService) Format() choropleth.Formatter { return s.cfg.Format }

// Feature returns the feature with the given region ID.
func (s *DatasetService) Feature(id string) (*geojson.Feature, error) {
	fc, err := s.Collection()
	if err != nil {
		return nil, err
	}
	i, err := strconv.Atoi(id)
	if err != nil || i < 0 || i >= len(fc.Features) || choropleth.RegionID(i) != id {
		return nil, eris.Wrapf(ErrRegionMissing, "region %q", id)
	}
	return fc.Features[i], nil
}

// Regions returns one page of region summaries and the total count.
func (s *DatasetService) Regions(offset, limit int) ([]RegionSummary, int, error) {
	fc, err := s.Collection()
	if err != nil {
		return nil, 0, err
	}
	total := len(fc.Features)
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}

	out := make([]RegionSummary, 0, end-offset)
	for i := offset; i < end; i++ {
		out = append(out, s.summary(i, fc.Features[i]))
	}
	return out, total, nil
}

func (s *DatasetService) summary(i int, f *geojson.Feature) RegionSummary {
	rows := choropleth.Projector{Fields: s.cfg.Fields, Format: s.cfg.Format}.Project(f.Properties)
	area, _ := s.cfg.Fields.AreaValue(f.Properties)
	return RegionSummary{
		ID:       choropleth.RegionID(i),
		Name:     rows[0].Value,
		District: rows[1].Value,
		Regency:  rows[2].Value,
		Area:     area,
		AreaText: rows[3].Value,
	}
}
