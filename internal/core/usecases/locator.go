package usecases

import (
	"context"
	"errors"
	"fmt"

	"github.com/samirrijal/landmarkmap/internal/core/domain"
	"github.com/samirrijal/landmarkmap/internal/pkg/geospatial"
)

// UserMarkerGlyph and UserMarkerColor style the "you are here" marker.
const (
	UserMarkerGlyph = "user"
	UserMarkerColor = "#D32F2F"
)

// Locate asks for the user's position once. On success the view moves to the
// midpoint between the user and the default center, a "you are here" marker is
// placed outside the landmark set and the new region is fetched. On failure
// the error is shown and, when FetchOnLocateFailure is set, the current
// region is fetched anyway. Concurrent calls are not deduplicated.
func (c *Coordinator) Locate(ctx context.Context) error {
	if !c.post(c.status.ClearError) {
		return domain.ErrClosed
	}

	pos, err := c.positions.CurrentPosition(ctx)
	if err == nil && !pos.Valid() {
		err = fmt.Errorf("invalid position %.6f,%.6f", pos.Lat, pos.Lon)
	}
	if err != nil {
		if !errors.Is(err, domain.ErrGeolocationUnavailable) {
			err = fmt.Errorf("%w: %v", domain.ErrGeolocationUnavailable, err)
		}
		c.logger.Info("locate failed", "error", err, "fetch_default", c.opts.FetchOnLocateFailure)

		msg := domain.UserMessage(err)
		if !c.opts.FetchOnLocateFailure {
			c.post(func() { c.status.ShowError(msg) })
			return err
		}
		if ferr := c.fetchAndWait(ctx, func() domain.ViewportQuery {
			c.status.ShowError(msg)
			return domain.BoundsQuery(c.viewport.CurrentBounds())
		}, nil); ferr != nil {
			return errors.Join(err, ferr)
		}
		return err
	}

	return c.fetchAndWait(ctx, func() domain.ViewportQuery {
		mid := geospatial.Midpoint(pos, c.opts.DefaultCenter)
		c.viewport.Recenter(mid, c.opts.LocateZoom)
		c.widget.SetView(mid, c.opts.LocateZoom)
		c.placeUserMarker(pos)
		return domain.BoundsQuery(c.viewport.CurrentBounds())
	}, nil)
}

// placeUserMarker replaces the "you are here" marker. Must run on the loop.
func (c *Coordinator) placeUserMarker(pos domain.GeoPoint) {
	if c.here != nil {
		c.widget.RemoveMarker(c.here.ID)
	}
	c.here = &domain.MarkerVisual{
		ID:       c.store.newID(),
		Location: pos,
		Title:    "You are here",
		Glyph:    UserMarkerGlyph,
		Color:    UserMarkerColor,
	}
	c.widget.AddMarker(*c.here)
}
