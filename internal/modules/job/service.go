// README: Job map service: marker listing feeding the clustering engine.
package job

import (
	"context"

	"fixgo/internal/modules/cluster"
)

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// MapMarkers returns the render variants for the jobs-on-map view at the
// given zoom level. Clusters are rebuilt from scratch per call.
func (s *Service) MapMarkers(ctx context.Context, f Filter, zoom int) ([]cluster.Marker, error) {
	markers, err := s.store.ListMarkers(ctx, f)
	if err != nil {
		return nil, err
	}
	return cluster.Build(markers, zoom), nil
}
