package crs

import "math"

// WGS84 ellipsoid.
const (
	semiMajor  = 6378137.0
	flattening = 1 / 298.257223563

	// MaxMercatorLat is the latitude beyond which the spherical Mercator
	// projection diverges; input latitudes are clamped to it.
	MaxMercatorLat = 85.05112878

	utmScale        = 0.9996
	utmFalseEasting = 500000.0
	utmFalseNorth   = 10000000.0
)

// mercatorForward projects geodetic degrees onto EPSG:3857 meters.
func mercatorForward(lon, lat float64) (x, y float64) {
	if lat > MaxMercatorLat {
		lat = MaxMercatorLat
	} else if lat < -MaxMercatorLat {
		lat = -MaxMercatorLat
	}

	x = lon * math.Pi / 180 * semiMajor
	y = semiMajor * math.Log(math.Tan(math.Pi/4+lat*math.Pi/360))
	return x, y
}

// utmForward returns the transverse Mercator forward projection for a WGS84
// UTM zone. Standard series expansion in the eccentricity.
func utmForward(zone int, south bool) func(lon, lat float64) (x, y float64) {
	e2 := flattening * (2 - flattening)
	e4 := e2 * e2
	e6 := e4 * e2
	ep2 := e2 / (1 - e2)
	lonOrigin := float64((zone-1)*6-180+3) * math.Pi / 180

	return func(lon, lat float64) (float64, float64) {
		phi := lat * math.Pi / 180
		lam := lon * math.Pi / 180

		sinPhi, cosPhi := math.Sin(phi), math.Cos(phi)
		tanPhi := math.Tan(phi)

		n := semiMajor / math.Sqrt(1-e2*sinPhi*sinPhi)
		t := tanPhi * tanPhi
		c := ep2 * cosPhi * cosPhi
		a := cosPhi * (lam - lonOrigin)

		// Meridian arc length from the equator.
		m := semiMajor * ((1-e2/4-3*e4/64-5*e6/256)*phi -
			(3*e2/8+3*e4/32+45*e6/1024)*math.Sin(2*phi) +
			(15*e4/256+45*e6/1024)*math.Sin(4*phi) -
			(35*e6/3072)*math.Sin(6*phi))

		a2 := a * a
		a3 := a2 * a
		a4 := a3 * a
		a5 := a4 * a
		a6 := a5 * a

		x := utmScale*n*(a+(1-t+c)*a3/6+(5-18*t+t*t+72*c-58*ep2)*a5/120) + utmFalseEasting
		y := utmScale * (m + n*tanPhi*(a2/2+(5-t+9*c+4*c*c)*a4/24+
			(61-58*t+t*t+600*c-330*ep2)*a6/720))

		if south {
			y += utmFalseNorth
		}
		return x, y
	}
}

// UTMZone returns the EPSG code of the UTM zone covering a geodetic point.
func UTMZone(lon, lat float64) int {
	zone := int(math.Floor((lon+180)/6)) + 1
	if zone < 1 {
		zone = 1
	} else if zone > 60 {
		zone = 60
	}
	if lat < 0 {
		return 32700 + zone
	}
	return 32600 + zone
}
