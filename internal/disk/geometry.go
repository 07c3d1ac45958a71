// Package disk models the geometry of an inclined Keplerian disk: the
// sky-plane to disk-plane deprojection and the line-of-sight rotation
// velocity field derived from it.
package disk

import "math"

// Physical constants (SI).
const (
	G    = 6.67430e-11     // gravitational constant, m^3 kg^-1 s^-2
	Msun = 1.98847e30      // solar mass, kg
	AU   = 1.495978707e11  // astronomical unit, m
)

// Geometry describes an inclined disk on the sky. It is an immutable value
// shared read-only by every mask computation; it does not vary per line.
//
// The position angle is measured east of north to the redshifted major axis.
// Center offsets are arcsec offsets of the disk center from the image
// reference pixel, positive east / positive north.
type Geometry struct {
	Inc   float64 // inclination, degrees
	PA    float64 // position angle, degrees
	Mstar float64 // stellar mass, solar masses
	Dist  float64 // distance, parsecs
	VLSR  float64 // systemic velocity, m/s
	DX0   float64 // RA center offset, arcsec
	DY0   float64 // Dec center offset, arcsec
}

// Deproject maps a sky-plane offset (dx east, dy north, arcsec) into the
// disk plane, returning the disk radius in arcsec and the azimuth in radians.
// Azimuth zero lies along the redshifted major axis.
func (g Geometry) Deproject(dx, dy float64) (r, theta float64) {
	dx -= g.DX0
	dy -= g.DY0

	pa := g.PA * math.Pi / 180
	major := dx*math.Sin(pa) + dy*math.Cos(pa)
	minor := dx*math.Cos(pa) - dy*math.Sin(pa)

	// Stretch the minor axis back out of the sky plane.
	minor /= math.Cos(g.Inc * math.Pi / 180)

	return math.Hypot(major, minor), math.Atan2(minor, major)
}

// VKep returns the Keplerian orbital speed in m/s at disk radius r (arcsec).
// The small-angle approximation r[au] = r[arcsec] * d[pc] converts the
// angular radius to a physical one.
func (g Geometry) VKep(r float64) float64 {
	rm := r * g.Dist * AU
	return math.Sqrt(G * g.Mstar * Msun / rm)
}

// VLOS returns the line-of-sight velocity in m/s at disk radius r (arcsec)
// and azimuth theta (radians), including the systemic velocity.
func (g Geometry) VLOS(r, theta float64) float64 {
	return g.VKep(r)*math.Cos(theta)*math.Sin(g.Inc*math.Pi/180) + g.VLSR
}
