package physics

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// mat3 is a row-major 3x3 matrix.
type mat3 [9]float64

func (m mat3) mulVec(v r3.Vec) r3.Vec {
	return r3.Vec{
		X: m[0]*v.X + m[1]*v.Y + m[2]*v.Z,
		Y: m[3]*v.X + m[4]*v.Y + m[5]*v.Z,
		Z: m[6]*v.X + m[7]*v.Y + m[8]*v.Z,
	}
}

func (m mat3) mul(o mat3) mat3 {
	var out mat3
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			out[r*3+c] = m[r*3]*o[c] + m[r*3+1]*o[3+c] + m[r*3+2]*o[6+c]
		}
	}
	return out
}

func (m mat3) transpose() mat3 {
	return mat3{m[0], m[3], m[6], m[1], m[4], m[7], m[2], m[5], m[8]}
}

// inverse returns the cofactor inverse, or the zero matrix when m is
// singular.
func (m mat3) inverse() mat3 {
	c00 := m[4]*m[8] - m[5]*m[7]
	c01 := m[5]*m[6] - m[3]*m[8]
	c02 := m[3]*m[7] - m[4]*m[6]
	det := m[0]*c00 + m[1]*c01 + m[2]*c02
	if det == 0 {
		return mat3{}
	}
	inv := 1 / det
	return mat3{
		c00 * inv, (m[2]*m[7] - m[1]*m[8]) * inv, (m[1]*m[5] - m[2]*m[4]) * inv,
		c01 * inv, (m[0]*m[8] - m[2]*m[6]) * inv, (m[2]*m[3] - m[0]*m[5]) * inv,
		c02 * inv, (m[1]*m[6] - m[0]*m[7]) * inv, (m[0]*m[4] - m[1]*m[3]) * inv,
	}
}

// quatAt reads the quaternion of body i from a Q vector.
func quatAt(q []float64, i int) quat.Number {
	o := 7*i + 3
	return quat.Number{Real: q[o], Imag: q[o+1], Jmag: q[o+2], Kmag: q[o+3]}
}

func setQuat(q []float64, i int, n quat.Number) {
	o := 7*i + 3
	q[o], q[o+1], q[o+2], q[o+3] = n.Real, n.Imag, n.Jmag, n.Kmag
}

func vecAt(v []float64, off int) r3.Vec {
	return r3.Vec{X: v[off], Y: v[off+1], Z: v[off+2]}
}

func setVec(v []float64, off int, x r3.Vec) {
	v[off], v[off+1], v[off+2] = x.X, x.Y, x.Z
}

// Position returns the world position of body i.
func Position(q []float64, i int) r3.Vec { return vecAt(q, 7*i) }

// Orientation returns the unit quaternion of body i.
func Orientation(q []float64, i int) quat.Number { return quatAt(q, i) }

// Rotate applies the unit quaternion n to v.
func Rotate(n quat.Number, v r3.Vec) r3.Vec {
	p := quat.Mul(quat.Mul(n, quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}), quat.Conj(n))
	return r3.Vec{X: p.Imag, Y: p.Jmag, Z: p.Kmag}
}

// rotation returns the rotation matrix of the unit quaternion n.
func rotation(n quat.Number) mat3 {
	w, x, y, z := n.Real, n.Imag, n.Jmag, n.Kmag
	return mat3{
		1 - 2*(y*y+z*z), 2 * (x*y - w*z), 2 * (x*z + w*y),
		2 * (x*y + w*z), 1 - 2*(x*x+z*z), 2 * (y*z - w*x),
		2 * (x*z - w*y), 2 * (y*z + w*x), 1 - 2*(x*x+y*y),
	}
}

func normalize(n quat.Number) quat.Number {
	a := quat.Abs(n)
	if a == 0 {
		return quat.Number{Real: 1}
	}
	return quat.Scale(1/a, n)
}

// spin rotates n by the world-frame rotation vector dtheta. The update is
// the exact exponential map, so angularDelta inverts it.
func spin(n quat.Number, dtheta r3.Vec) quat.Number {
	half := quat.Number{Imag: dtheta.X / 2, Jmag: dtheta.Y / 2, Kmag: dtheta.Z / 2}
	return normalize(quat.Mul(quat.Exp(half), n))
}

// angularDelta is the rotation vector taking from to to.
func angularDelta(from, to quat.Number) r3.Vec {
	d := quat.Mul(to, quat.Conj(from))
	if d.Real < 0 {
		d = quat.Scale(-1, d)
	}
	im := r3.Vec{X: d.Imag, Y: d.Jmag, Z: d.Kmag}
	s := r3.Norm(im)
	if s < 1e-12 {
		return r3.Scale(2, im)
	}
	angle := 2 * math.Atan2(s, d.Real)
	return r3.Scale(angle/s, im)
}

func perpendicular(a r3.Vec) r3.Vec {
	e := r3.Vec{X: 1}
	if math.Abs(a.X) > 0.9 {
		e = r3.Vec{Y: 1}
	}
	return r3.Unit(r3.Cross(a, e))
}

func finite(xs []float64) bool {
	for _, v := range xs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Turn returns a copy of q with every body rotated rigidly about pivot by
// the rotation vector dtheta. Joint constraints stay satisfied.
func Turn(q []float64, pivot, dtheta r3.Vec) []float64 {
	out := append([]float64(nil), q...)
	d := spin(quat.Number{Real: 1}, dtheta)
	for i := 0; i < len(q)/7; i++ {
		setVec(out, 7*i, r3.Add(pivot, Rotate(d, r3.Sub(vecAt(q, 7*i), pivot))))
		setQuat(out, i, normalize(quat.Mul(d, quatAt(q, i))))
	}
	return out
}
