package usecases

import (
	"context"
	"strings"
	"time"

	"github.com/samirrijal/landmarkmap/internal/core/domain"
	"github.com/samirrijal/landmarkmap/internal/pkg/geospatial"
)

// Search geocodes text, re-centers the map on the result and fetches the
// landmarks around it. Once that fetch is accepted the view is fitted to the
// returned markers. Blank text is refused without side effects. Failures are
// shown on the status surface and also returned; a re-centered view is kept
// even if the fetch fails.
func (c *Coordinator) Search(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.ErrEmptyQuery
	}
	if !c.post(c.status.ClearError) {
		return domain.ErrClosed
	}

	point, err := c.geocoder.Geocode(ctx, text)
	c.publishSearch(text, point, err)
	if err != nil {
		c.logger.Info("search geocode failed", "text", text, "error", err)
		c.post(func() { c.status.ShowError(domain.UserMessage(err)) })
		return err
	}

	return c.fetchAndWait(ctx, func() domain.ViewportQuery {
		c.viewport.Recenter(point, c.opts.SearchZoom)
		c.widget.SetView(point, c.opts.SearchZoom)
		return domain.NearQuery(point, text)
	}, func(r fetchResult) {
		if r.outcome != domain.OutcomeAccepted {
			return
		}
		points := make([]domain.GeoPoint, len(r.landmarks))
		for i, l := range r.landmarks {
			points[i] = l.Location()
		}
		if b, ok := geospatial.Enclose(points); ok {
			c.widget.FitBounds(b)
		}
	})
}

func (c *Coordinator) publishSearch(text string, point domain.GeoPoint, err error) {
	if c.publisher == nil {
		return
	}
	ev := &domain.SearchEvent{Session: c.opts.Session, Text: text, Time: time.Now()}
	if err != nil {
		ev.Error = err.Error()
	} else {
		ev.Location = &point
	}
	go func() {
		if err := c.publisher.PublishSearch(context.Background(), ev); err != nil {
			c.logger.Debug("publish search event failed", "error", err)
		}
	}()
}
