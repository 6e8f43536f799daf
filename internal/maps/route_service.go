// README: Google Directions adapter implementing the tracking Router.
package maps

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"

	"fixgo/internal/modules/tracking"
	"fixgo/internal/types"
)

// RouteService wraps the Google Maps Directions API.
type RouteService struct {
	client *maps.Client
}

func NewRouteService(apiKey string) (*RouteService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating maps client: %w", err)
	}
	return &RouteService{client: client}, nil
}

// Route returns the driving polyline and duration from the provider's
// position to the destination. Results are biased to Poland, where the
// marketplace operates.
func (s *RouteService) Route(ctx context.Context, from, to types.Point) (*tracking.RouteEstimate, error) {
	req := &maps.DirectionsRequest{
		Origin:      fmt.Sprintf("%f,%f", from.Lat, from.Lng),
		Destination: fmt.Sprintf("%f,%f", to.Lat, to.Lng),
		Mode:        maps.TravelModeDriving,
		Region:      "PL",
	}

	routes, _, err := s.client.Directions(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("maps api error: %w", err)
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return nil, fmt.Errorf("no route found")
	}

	route := routes[0]
	points, err := route.OverviewPolyline.Decode()
	if err != nil {
		return nil, fmt.Errorf("decoding polyline: %w", err)
	}

	polyline := make([]types.Point, 0, len(points))
	for _, p := range points {
		polyline = append(polyline, types.Point{Lat: p.Lat, Lng: p.Lng})
	}

	return &tracking.RouteEstimate{
		Polyline: polyline,
		Duration: route.Legs[0].Duration,
	}, nil
}
