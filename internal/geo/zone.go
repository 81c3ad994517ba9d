package geo

// Zone is a named area described either by a circle or by a polygon.
// A zone with a non-empty Polygon ignores Center and RadiusKm.
type Zone struct {
	Name     string  `json:"name" mapstructure:"name"`
	Center   Point   `json:"center" mapstructure:"center"`
	RadiusKm float64 `json:"radiusKm" mapstructure:"radius_km"`
	Polygon  []Point `json:"polygon,omitempty" mapstructure:"polygon"`
	Score    float64 `json:"score" mapstructure:"score"`
}

// Contains reports whether p falls inside the zone.
func (z Zone) Contains(p Point) bool {
	if len(z.Polygon) >= 3 {
		return inPolygon(p, z.Polygon)
	}
	if z.RadiusKm <= 0 {
		return false
	}
	return DistanceBetween(z.Center, p) <= z.RadiusKm
}

// inPolygon is an even-odd ray cast with longitude as x and latitude as y.
func inPolygon(p Point, poly []Point) bool {
	inside := false
	j := len(poly) - 1
	for i := 0; i < len(poly); i++ {
		yi, yj := poly[i].Lat, poly[j].Lat
		xi, xj := poly[i].Lng, poly[j].Lng
		if (yi > p.Lat) != (yj > p.Lat) {
			x := (xj-xi)*(p.Lat-yi)/(yj-yi) + xi
			if p.Lng < x {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}
