package feed

import (
	"context"
	"fmt"
	"strings"

	"github.com/campusboard/announcements/backend/internal/models"
	"github.com/campusboard/announcements/backend/internal/sources"
)

type firstSuccess struct {
	sources []sources.Source
}

// FirstSuccess tries srcs strictly in order and returns the first non-empty
// result. When every source errors or comes back empty the error wraps
// ErrAllSourcesFailed and, if any, the last source error.
func FirstSuccess(srcs ...sources.Source) sources.Source {
	return &firstSuccess{sources: srcs}
}

func (f *firstSuccess) Name() string {
	names := make([]string, 0, len(f.sources))
	for _, s := range f.sources {
		names = append(names, s.Name())
	}
	return strings.Join(names, ">")
}

func (f *firstSuccess) Fetch(ctx context.Context) ([]models.Announcement, error) {
	var lastErr error
	for _, s := range f.sources {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}
		items, err := s.Fetch(ctx)
		if err != nil {
			lastErr = err
			continue
		}
		if len(items) > 0 {
			return items, nil
		}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrAllSourcesFailed, lastErr)
	}
	return nil, fmt.Errorf("%w: no source returned announcements", ErrAllSourcesFailed)
}
