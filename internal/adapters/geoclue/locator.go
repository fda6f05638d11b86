// Package geoclue provides host positioning through GeoClue2 on the system bus.
package geoclue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/samirrijal/landmarkmap/internal/core/domain"
)

const (
	geoService    = "org.freedesktop.GeoClue2"
	managerPath   = dbus.ObjectPath("/org/freedesktop/GeoClue2/Manager")
	managerIface  = "org.freedesktop.GeoClue2.Manager"
	clientIface   = "org.freedesktop.GeoClue2.Client"
	locationIface = "org.freedesktop.GeoClue2.Location"
	propsIface    = "org.freedesktop.DBus.Properties"

	// accuracyExact is GEOCLUE_ACCURACY_LEVEL_EXACT.
	accuracyExact = uint32(8)
)

// Locator implements ports.PositionProvider. Every call is a one-shot
// request: a GeoClue client is created, started, read once and released.
type Locator struct {
	desktopID string
	timeout   time.Duration
}

// New creates a locator. desktopID must match a .desktop file that carries
// X-Geoclue-2-Client=true, otherwise GeoClue denies access.
func New(desktopID string, timeout time.Duration) *Locator {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Locator{desktopID: desktopID, timeout: timeout}
}

// CurrentPosition returns the host's position. Any bus, permission or timeout
// problem is reported as domain.ErrGeolocationUnavailable.
func (l *Locator) CurrentPosition(ctx context.Context) (domain.GeoPoint, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	bus, err := dbus.ConnectSystemBus()
	if err != nil {
		return domain.GeoPoint{}, unavailable(err)
	}
	defer bus.Close()

	p, err := l.locate(ctx, bus)
	if err != nil {
		return domain.GeoPoint{}, unavailable(err)
	}
	return p, nil
}

func (l *Locator) locate(ctx context.Context, bus *dbus.Conn) (domain.GeoPoint, error) {
	manager := bus.Object(geoService, managerPath)

	var clientPath dbus.ObjectPath
	if err := manager.CallWithContext(ctx, managerIface+".CreateClient", 0).Store(&clientPath); err != nil {
		return domain.GeoPoint{}, fmt.Errorf("create client: %w", err)
	}
	defer manager.Call(managerIface+".DeleteClient", 0, clientPath)

	client := bus.Object(geoService, clientPath)
	setProp := func(name string, val any) error {
		return client.CallWithContext(ctx, propsIface+".Set", 0, clientIface, name, dbus.MakeVariant(val)).Err
	}
	if err := setProp("DesktopId", l.desktopID); err != nil {
		return domain.GeoPoint{}, fmt.Errorf("set DesktopId: %w", err)
	}
	if err := setProp("RequestedAccuracyLevel", accuracyExact); err != nil {
		return domain.GeoPoint{}, fmt.Errorf("set accuracy: %w", err)
	}

	if err := bus.AddMatchSignal(
		dbus.WithMatchObjectPath(clientPath),
		dbus.WithMatchInterface(propsIface),
		dbus.WithMatchMember("PropertiesChanged"),
	); err != nil {
		return domain.GeoPoint{}, fmt.Errorf("add match: %w", err)
	}
	signals := make(chan *dbus.Signal, 8)
	bus.Signal(signals)
	defer bus.RemoveSignal(signals)

	if err := client.CallWithContext(ctx, clientIface+".Start", 0).Err; err != nil {
		return domain.GeoPoint{}, fmt.Errorf("start client: %w", err)
	}
	defer client.Call(clientIface+".Stop", 0)

	locPath, err := locationPath(client)
	if err != nil {
		return domain.GeoPoint{}, err
	}
	for !usablePath(locPath) {
		select {
		case <-ctx.Done():
			return domain.GeoPoint{}, ctx.Err()
		case sig, ok := <-signals:
			if !ok || sig == nil {
				return domain.GeoPoint{}, errors.New("dbus signal channel closed")
			}
			locPath = changedLocation(sig, clientPath)
		}
	}

	var props map[string]dbus.Variant
	if err := bus.Object(geoService, locPath).CallWithContext(ctx, propsIface+".GetAll", 0, locationIface).Store(&props); err != nil {
		return domain.GeoPoint{}, fmt.Errorf("read location: %w", err)
	}
	return parseFix(props)
}

func locationPath(client dbus.BusObject) (dbus.ObjectPath, error) {
	v, err := client.GetProperty(clientIface + ".Location")
	if err != nil {
		return "", fmt.Errorf("get location: %w", err)
	}
	p, _ := v.Value().(dbus.ObjectPath)
	return p, nil
}

func usablePath(p dbus.ObjectPath) bool {
	return p != "" && p != "/"
}

// changedLocation extracts the new Location path from a PropertiesChanged signal.
func changedLocation(sig *dbus.Signal, clientPath dbus.ObjectPath) dbus.ObjectPath {
	if sig.Path != clientPath || sig.Name != propsIface+".PropertiesChanged" || len(sig.Body) < 2 {
		return ""
	}
	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return ""
	}
	v, ok := changed["Location"]
	if !ok {
		return ""
	}
	p, _ := v.Value().(dbus.ObjectPath)
	return p
}

// parseFix converts a Location object's properties into a point.
func parseFix(props map[string]dbus.Variant) (domain.GeoPoint, error) {
	getF64 := func(key string) (float64, bool) {
		v, ok := props[key]
		if !ok {
			return 0, false
		}
		f, ok := v.Value().(float64)
		return f, ok
	}

	lat, okLat := getF64("Latitude")
	lon, okLon := getF64("Longitude")
	if !okLat || !okLon {
		return domain.GeoPoint{}, errors.New("location lacks coordinates")
	}
	if lat == 0 && lon == 0 {
		return domain.GeoPoint{}, errors.New("null island fix")
	}
	p := domain.GeoPoint{Lat: lat, Lon: lon}
	if !p.Valid() {
		return domain.GeoPoint{}, fmt.Errorf("invalid fix %f,%f", lat, lon)
	}
	return p, nil
}

func unavailable(err error) error {
	return fmt.Errorf("%w: geoclue: %v", domain.ErrGeolocationUnavailable, err)
}
