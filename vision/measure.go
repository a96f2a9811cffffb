// Package vision defines the contract with the external ball-finding
// collaborator: the measurement triplet it produces, the pinhole geometry
// it derives the triplet from, and a listener that receives triplets over
// a local datagram socket.
package vision

import "math"

// BallRadius is the physical ball radius in meters.
const BallRadius = 0.065 / 2

// Measurement is the only datum crossing the vision boundary: where the
// ball is relative to the camera.
type Measurement struct {
	Forward float64 // meters
	Lateral float64 // meters
	Bearing float64 // degrees
}

// Intrinsics is the pinhole model of the collaborator's camera: focal
// length and principal point x, both in pixels.
type Intrinsics struct {
	Fx float64
	Cx float64
}

// PinholeDistance converts the apparent pixel radius of an object with a
// known physical radius into a camera-to-object distance.
func (i Intrinsics) PinholeDistance(actualRadius, pixelRadius float64) float64 {
	return actualRadius * i.Fx / pixelRadius
}

// Decompose splits a distance toward pixel column px into the forward and
// lateral components and the bearing angle.
func (i Intrinsics) Decompose(px, distance float64) Measurement {
	bearing := math.Atan((px - i.Cx) / i.Fx)
	return Measurement{
		Forward: distance * math.Cos(bearing),
		Lateral: distance * math.Sin(bearing),
		Bearing: bearing * 180 / math.Pi,
	}
}
