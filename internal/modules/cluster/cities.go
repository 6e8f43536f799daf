// README: City centroids and the service region used by the marker filter.
package cluster

import (
	"math"
	"strings"

	"fixgo/internal/types"
)

// Warsaw is the only city with district-level data; beyond this zoom its
// clusters split by district.
const (
	DistrictCity          = "warszawa"
	DistrictZoomThreshold = 12
)

// cityCentroids are the fallback coordinates the listing form assigns when a
// job has no geocodable street address. A non-precise marker sitting exactly
// on one of these is a placeholder, not a position, and is kept off the map.
var cityCentroids = map[string]types.Point{
	"warszawa":  {Lat: 52.2297, Lng: 21.0122},
	"krakow":    {Lat: 50.0647, Lng: 19.9450},
	"lodz":      {Lat: 51.7592, Lng: 19.4560},
	"wroclaw":   {Lat: 51.1079, Lng: 17.0385},
	"poznan":    {Lat: 52.4064, Lng: 16.9252},
	"gdansk":    {Lat: 54.3520, Lng: 18.6466},
	"szczecin":  {Lat: 53.4285, Lng: 14.5528},
	"katowice":  {Lat: 50.2649, Lng: 19.0238},
	"lublin":    {Lat: 51.2465, Lng: 22.5684},
	"bialystok": {Lat: 53.1325, Lng: 23.1688},
}

// serviceRegion bounds the marketplace's operating area (Poland).
var serviceRegion = struct {
	minLat, maxLat, minLng, maxLng float64
}{minLat: 49.0, maxLat: 55.0, minLng: 14.0, maxLng: 24.2}

const centroidEpsilon = 1e-4

// isCentroidFallback reports whether the marker's coordinates equal its
// city's known centroid.
func isCentroidFallback(m JobMarker) bool {
	c, ok := cityCentroids[normalizeCity(m.City)]
	if !ok {
		return false
	}
	return math.Abs(m.Point.Lat-c.Lat) < centroidEpsilon &&
		math.Abs(m.Point.Lng-c.Lng) < centroidEpsilon
}

func inServiceRegion(p types.Point) bool {
	return p.Lat >= serviceRegion.minLat && p.Lat <= serviceRegion.maxLat &&
		p.Lng >= serviceRegion.minLng && p.Lng <= serviceRegion.maxLng
}

func normalizeCity(city string) string {
	return strings.ToLower(strings.TrimSpace(city))
}
