package ingest

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
)

const maxLineSize = 1 << 20

// NDJSONSource replays a file or http(s) URL of newline-delimited JSON
// reports once and returns.
type NDJSONSource struct {
	name       string
	urlOrPath  string
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
}

func NewNDJSONSource(name, urlOrPath string, timeout time.Duration, logger *slog.Logger) *NDJSONSource {
	return &NDJSONSource{
		name:       name,
		urlOrPath:  urlOrPath,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		now:        time.Now,
	}
}

func (s *NDJSONSource) Name() string { return s.name }

// open returns a reader for a URL or a local file path.
func (s *NDJSONSource) open(ctx context.Context) (io.ReadCloser, error) {
	if !strings.HasPrefix(s.urlOrPath, "http://") && !strings.HasPrefix(s.urlOrPath, "https://") {
		return os.Open(s.urlOrPath)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.urlOrPath, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", s.urlOrPath, err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, s.urlOrPath)
	}
	return resp.Body, nil
}

func (s *NDJSONSource) Run(ctx context.Context, sink Sink) error {
	rc, err := s.open(ctx)
	if err != nil {
		return fmt.Errorf("open %s: %w", s.urlOrPath, err)
	}
	defer func() { _ = rc.Close() }()

	sc := bufio.NewScanner(rc)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	var line, delivered int
	for sc.Scan() {
		line++
		if ctx.Err() != nil {
			return nil
		}
		b := sc.Bytes()
		if len(strings.TrimSpace(string(b))) == 0 {
			continue
		}
		r, err := DecodeReport(b, s.now())
		if err != nil {
			s.logger.Warn("skipping line", "line", line, "err", err)
			continue
		}
		sink(r)
		delivered++
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read %s: %w", s.urlOrPath, err)
	}
	s.logger.Info("replay finished", "lines", line, "reports", delivered)
	return nil
}
