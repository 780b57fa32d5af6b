package geo

import (
	"math"
	"testing"
)

func TestDistanceKnownPairs(t *testing.T) {
	tests := []struct {
		name string
		a, b Point
		want float64
		tol  float64
	}{
		{"same point", Point{44.787197, 20.457273}, Point{44.787197, 20.457273}, 0, 1e-6},
		{"one degree of latitude", Point{0, 0}, Point{1, 0}, 111195, 5},
		{"belgrade to novi sad", Point{44.8125, 20.4612}, Point{45.2671, 19.8335}, 70623, 5},
		{"across antimeridian", Point{0, 179.5}, Point{0, -179.5}, 111195, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Distance(tt.a, tt.b)
			if math.Abs(got-tt.want) > tt.tol {
				t.Fatalf("Distance=%f want %f±%f", got, tt.want, tt.tol)
			}
		})
	}
}

func TestWithinIsInclusive(t *testing.T) {
	center := Point{10, 10}
	other := Point{10.01, 10}
	d := Distance(center, other)
	if !Within(center, other, d) {
		t.Fatalf("point at exactly radius must be included")
	}
	if Within(center, other, math.Nextafter(d, 0)) {
		t.Fatalf("point just beyond radius must be excluded")
	}
}

func TestBoundingBoxContainsCircle(t *testing.T) {
	centers := []Point{{44.787197, 20.457273}, {0, 0}, {-60, 170}, {70, -179.9}}
	radii := []float64{10, 5000, 50000}
	for _, c := range centers {
		for _, r := range radii {
			box := BoundingBox(c, r)
			for bearing := 0.0; bearing < 360; bearing += 15 {
				p := destination(c, r*0.999, bearing)
				if !box.Contains(p) {
					t.Fatalf("box %+v for center %+v r=%v misses %+v (bearing %v)", box, c, r, p, bearing)
				}
			}
		}
	}
}

func TestBoundingBoxPoleAndWrap(t *testing.T) {
	box := BoundingBox(Point{89.99, 0}, 5000)
	if box.MaxLat != 90 || box.MinLon != -180 || box.MaxLon != 180 {
		t.Fatalf("polar box should span all longitudes: %+v", box)
	}
	box = BoundingBox(Point{0, 179.99}, 5000)
	if !box.Wraps() {
		t.Fatalf("expected wrapping box: %+v", box)
	}
	if !box.Contains(Point{0, -179.99}) {
		t.Fatalf("wrapping box should include the other side")
	}
	if box.Contains(Point{0, 0}) {
		t.Fatalf("wrapping box must not include the prime meridian")
	}
}

func TestValidate(t *testing.T) {
	if err := (Point{91, 0}).Validate(); err == nil {
		t.Fatalf("lat 91 should be invalid")
	}
	if err := (Point{0, -181}).Validate(); err == nil {
		t.Fatalf("lon -181 should be invalid")
	}
	if err := (Point{math.NaN(), 0}).Validate(); err == nil {
		t.Fatalf("NaN should be invalid")
	}
	if err := (Point{-90, 180}).Validate(); err != nil {
		t.Fatalf("edge point should be valid: %v", err)
	}
}

// destination moves dist meters from p along bearing (degrees) on the sphere.
func destination(p Point, dist, bearing float64) Point {
	lat1 := toRad(p.Lat)
	lon1 := toRad(p.Lon)
	brng := toRad(bearing)
	ang := dist / EarthRadiusMeters
	lat2 := math.Asin(math.Sin(lat1)*math.Cos(ang) + math.Cos(lat1)*math.Sin(ang)*math.Cos(brng))
	lon2 := lon1 + math.Atan2(math.Sin(brng)*math.Sin(ang)*math.Cos(lat1), math.Cos(ang)-math.Sin(lat1)*math.Sin(lat2))
	return Point{toDeg(lat2), normalizeLon(toDeg(lon2))}
}
