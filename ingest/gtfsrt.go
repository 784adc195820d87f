package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/theoremus-urban-solutions/aistrack/gtfsrt"
)

// GTFSRTSource polls a GTFS-Realtime VehiclePositions feed. Positions that
// did not change since the previous poll are not delivered again.
type GTFSRTSource struct {
	name     string
	client   *gtfsrt.Client
	url      string
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time

	seen map[int]time.Time
}

func NewGTFSRTSource(name string, client *gtfsrt.Client, url string, interval time.Duration, logger *slog.Logger) *GTFSRTSource {
	return &GTFSRTSource{
		name:     name,
		client:   client,
		url:      url,
		interval: interval,
		logger:   logger,
		now:      time.Now,
		seen:     map[int]time.Time{},
	}
}

func (s *GTFSRTSource) Name() string { return s.name }

func (s *GTFSRTSource) Run(ctx context.Context, sink Sink) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		s.poll(ctx, sink)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (s *GTFSRTSource) poll(ctx context.Context, sink Sink) {
	fm, err := s.client.FetchFeed(ctx, s.url)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Warn("poll failed", "err", err)
		}
		return
	}
	delivered := 0
	for _, r := range gtfsrt.Reports(fm, s.now()) {
		if last, ok := s.seen[r.MMSI]; ok && !r.Timestamp.After(last) {
			continue
		}
		s.seen[r.MMSI] = r.Timestamp
		sink(r)
		delivered++
	}
	s.logger.Debug("polled feed", "entities", len(fm.GetEntity()), "reports", delivered)
}
