// README: Zoom-aware clustering: pure function of the marker set and zoom level.
package cluster

import (
	"sort"

	"fixgo/internal/types"
)

// Build groups markers into render variants for the given zoom level. The
// grouping key is the lower-cased city, except for Warsaw at or above the
// district zoom threshold, where it becomes city+district. Clusters are
// always rebuilt from scratch; the output is deterministic for a given
// input, so rebuilding on every zoom or data change is safe.
func Build(markers []JobMarker, zoom int) []Marker {
	groups := make(map[string][]JobMarker)
	for _, m := range markers {
		if !plottable(m) {
			continue
		}
		key := groupKey(m, zoom)
		groups[key] = append(groups[key], m)
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]Marker, 0, len(keys))
	for _, key := range keys {
		members := groups[key]
		if len(members) == 1 {
			single := members[0]
			out = append(out, Marker{Kind: KindSingle, Job: &single})
			continue
		}
		c := &JobCluster{
			Key:      key,
			City:     members[0].City,
			Centroid: centroid(members),
			Members:  members,
		}
		if key != normalizeCity(members[0].City) {
			c.District = members[0].District
		}
		for _, m := range members {
			if m.Urgent {
				c.HasUrgent = true
				break
			}
		}
		out = append(out, Marker{Kind: KindCluster, Cluster: c})
	}
	return out
}

// plottable keeps only markers the map can place: precisely geocoded ones,
// or approximate ones inside the service region. A bare city-centroid
// fallback is never plotted.
func plottable(m JobMarker) bool {
	if !m.PreciseLocation && isCentroidFallback(m) {
		return false
	}
	return m.PreciseLocation || inServiceRegion(m.Point)
}

func groupKey(m JobMarker, zoom int) string {
	city := normalizeCity(m.City)
	if city == DistrictCity && zoom >= DistrictZoomThreshold && m.District != "" {
		return city + "|" + normalizeCity(m.District)
	}
	return city
}

// centroid is the arithmetic mean of the member coordinates.
func centroid(members []JobMarker) types.Point {
	var lat, lng float64
	for _, m := range members {
		lat += m.Point.Lat
		lng += m.Point.Lng
	}
	n := float64(len(members))
	return types.Point{Lat: lat / n, Lng: lng / n}
}
