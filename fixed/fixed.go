package fixed

import (
	"github.com/go-gl/mathgl/mgl32"
)

const (
	FixOne   Fix = 1 << 16
	FixShift     = 16
)

// 16.16 fixed point scalar, stored as int32 on disk
type Fix int32

// 1.0 == full circle, stored as int16 on disk
type FixAng int16

func FromFloat(f float32) Fix {
	return Fix(f * float32(FixOne))
}

func FromInt(i int) Fix {
	return Fix(i << FixShift)
}

func (f Fix) Float() float32 {
	return float32(f) / float32(FixOne)
}

func (f Fix) Int() int {
	return int(f >> FixShift)
}

func (a FixAng) Float() float32 {
	return float32(a) / float32(1<<16)
}

type Vector struct {
	X, Y, Z Fix
}

func NewVector(x, y, z float32) Vector {
	return Vector{X: FromFloat(x), Y: FromFloat(y), Z: FromFloat(z)}
}

func (v Vector) Vec3() mgl32.Vec3 {
	return mgl32.Vec3{v.X.Float(), v.Y.Float(), v.Z.Float()}
}

func (v Vector) Add(o Vector) Vector {
	return Vector{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

func (v Vector) Sub(o Vector) Vector {
	return Vector{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

// Orientation matrix, rows as stored in file: right, up, forward
type Matrix struct {
	Right   Vector
	Up      Vector
	Forward Vector
}

func IdentityMatrix() Matrix {
	return Matrix{
		Right:   Vector{X: FixOne},
		Up:      Vector{Y: FixOne},
		Forward: Vector{Z: FixOne},
	}
}

func (m Matrix) Mat3() mgl32.Mat3 {
	return mgl32.Mat3FromCols(m.Right.Vec3(), m.Up.Vec3(), m.Forward.Vec3())
}
