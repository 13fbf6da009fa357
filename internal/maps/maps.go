// Package maps resolves pickup and destination addresses to a driving
// distance using the Google Maps Directions API.
package maps

import (
	"context"
	"fmt"
	"sync"

	"googlemaps.github.io/maps"

	"github.com/zologic/city-ride/internal/settings"
)

// RouteProvider resolves a driving route between two free-form addresses.
type RouteProvider interface {
	// Distance returns the driving distance in kilometers.
	Distance(ctx context.Context, origin, destination string) (float64, error)
}

// GoogleRoutes is the Google Maps implementation of RouteProvider. The client
// is created lazily so the API key can live in operator settings.
type GoogleRoutes struct {
	settings settings.Provider

	mu     sync.Mutex
	client *maps.Client
	key    string
}

// NewGoogleRoutes creates a GoogleRoutes reading its API key from settings.
func NewGoogleRoutes(provider settings.Provider) *GoogleRoutes {
	return &GoogleRoutes{settings: provider}
}

func (g *GoogleRoutes) getClient(ctx context.Context) (*maps.Client, error) {
	key := settings.String(ctx, g.settings, settings.KeyMapsAPIKey, "")
	if key == "" {
		return nil, fmt.Errorf("maps API key is not configured")
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.client != nil && g.key == key {
		return g.client, nil
	}

	client, err := maps.NewClient(maps.WithAPIKey(key))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	g.client = client
	g.key = key
	return client, nil
}

// Distance implements RouteProvider using the Directions API in driving mode.
func (g *GoogleRoutes) Distance(ctx context.Context, origin, destination string) (float64, error) {
	client, err := g.getClient(ctx)
	if err != nil {
		return 0, err
	}

	r := &maps.DirectionsRequest{
		Origin:      origin,
		Destination: destination,
		Mode:        maps.TravelModeDriving,
		Region:      "BA",
	}

	routes, _, err := client.Directions(ctx, r)
	if err != nil {
		return 0, fmt.Errorf("maps api error: %w", err)
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return 0, fmt.Errorf("no route found between %q and %q", origin, destination)
	}

	meters := 0
	for _, leg := range routes[0].Legs {
		meters += leg.Distance.Meters
	}
	return float64(meters) / 1000.0, nil
}

var _ RouteProvider = (*GoogleRoutes)(nil)
