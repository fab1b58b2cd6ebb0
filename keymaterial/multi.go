package keymaterial

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ruteri/did-ledger-adapter/interfaces"
)

// LocationSeparator joins fallback locations: the first source that returns
// the material wins.
const LocationSeparator = "|"

// MultiSource tries its sources in order.
type MultiSource struct {
	sources []interfaces.KeyMaterialSource
	log     *slog.Logger
}

func NewMultiSource(sources []interfaces.KeyMaterialSource, log *slog.Logger) *MultiSource {
	return &MultiSource{sources: sources, log: log}
}

// Fetch returns the first successful read. When every source fails the error
// matches ErrKeyMaterialNotFound only if all sources reported it.
func (m *MultiSource) Fetch(ctx context.Context) ([]byte, error) {
	start := time.Now()
	var errs []error

	for _, src := range m.sources {
		data, err := src.Fetch(ctx)
		if err == nil {
			m.log.Debug("Fetched key material",
				slog.String("source", src.Name()),
				slog.String("location", src.LocationURI()),
				slog.Duration("duration", time.Since(start)))
			return data, nil
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", interfaces.ErrSourceUnavailable, ctx.Err())
		}

		errs = append(errs, fmt.Errorf("%s: %w", src.LocationURI(), err))
		m.log.Debug("Failed to fetch key material, trying next source",
			slog.String("source", src.Name()),
			slog.String("location", src.LocationURI()),
			"err", err)
	}

	m.log.Error("All key material sources failed",
		slog.Int("failed_sources", len(errs)),
		slog.Duration("duration", time.Since(start)))

	sentinel := interfaces.ErrKeyMaterialNotFound
	for _, err := range errs {
		if !errors.Is(err, interfaces.ErrKeyMaterialNotFound) {
			sentinel = interfaces.ErrSourceUnavailable
			break
		}
	}
	return nil, fmt.Errorf("%w: all sources failed: %v", sentinel, errors.Join(errs...))
}

func (m *MultiSource) Name() string {
	return "multi"
}

func (m *MultiSource) LocationURI() string {
	locations := make([]string, 0, len(m.sources))
	for _, src := range m.sources {
		locations = append(locations, src.LocationURI())
	}
	return strings.Join(locations, LocationSeparator)
}
