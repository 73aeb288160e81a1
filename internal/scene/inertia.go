package scene

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

func volume(g Geom) float64 {
	switch g.Type {
	case Sphere:
		return 4.0 / 3.0 * math.Pi * g.Radius * g.Radius * g.Radius
	case Capsule:
		r := g.Radius
		return math.Pi*r*r*2*g.HalfLength + 4.0/3.0*math.Pi*r*r*r
	case Box:
		return 8 * g.HalfSize.X * g.HalfSize.Y * g.HalfSize.Z
	}
	return 0
}

// geomInertia is the inertia tensor of g about its own centre, body axes.
func geomInertia(g Geom) [9]float64 {
	m := g.Mass
	switch g.Type {
	case Sphere:
		i := 0.4 * m * g.Radius * g.Radius
		return diag(i, i, i)
	case Capsule:
		// Solid cylinder spanning the whole capsule, caps included.
		r := g.Radius
		l := 2*g.HalfLength + 2*r
		ia := 0.5 * m * r * r
		ip := m * (3*r*r + l*l) / 12
		a := g.Axis
		out := diag(ip, ip, ip)
		ax := [3]float64{a.X, a.Y, a.Z}
		for row := 0; row < 3; row++ {
			for col := 0; col < 3; col++ {
				out[row*3+col] += (ia - ip) * ax[row] * ax[col]
			}
		}
		return out
	case Box:
		x, y, z := g.HalfSize.X, g.HalfSize.Y, g.HalfSize.Z
		return diag(m*(y*y+z*z)/3, m*(x*x+z*z)/3, m*(x*x+y*y)/3)
	}
	return [9]float64{}
}

// massProperties returns total mass, the COM relative to the body origin
// and the inertia tensor about that COM.
func massProperties(geoms []Geom) (float64, r3.Vec, [9]float64) {
	mass := 0.0
	com := r3.Vec{}
	for _, g := range geoms {
		mass += g.Mass
		com = r3.Add(com, r3.Scale(g.Mass, g.Pos))
	}
	if mass <= 0 {
		return 0, r3.Vec{}, [9]float64{}
	}
	com = r3.Scale(1/mass, com)

	var total [9]float64
	for _, g := range geoms {
		gi := geomInertia(g)
		d := r3.Sub(g.Pos, com)
		dv := [3]float64{d.X, d.Y, d.Z}
		d2 := r3.Dot(d, d)
		for row := 0; row < 3; row++ {
			for col := 0; col < 3; col++ {
				shift := -g.Mass * dv[row] * dv[col]
				if row == col {
					shift += g.Mass * d2
				}
				total[row*3+col] += gi[row*3+col] + shift
			}
		}
	}
	return mass, com, total
}

func diag(a, b, c float64) [9]float64 {
	return [9]float64{a, 0, 0, 0, b, 0, 0, 0, c}
}
