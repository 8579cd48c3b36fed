// Package highd loads drone-captured highway trajectory recordings in the
// highD CSV layout: a recordingMeta.csv with per-recording constants, a
// tracksMeta.csv with one row per vehicle, and a tracks.csv with one row per
// vehicle per frame. All values are normalized to SI units (meters, seconds,
// meters per second) at load time.
package highd

import "time"

// Direction identifies a direction of travel on the recorded segment.
// Direction 1 travels along the lower lane group, direction 2 along the
// upper lane group, matching the highD drivingDirection convention.
type Direction int

const (
	DirectionLower Direction = 1
	DirectionUpper Direction = 2
)

// Directions lists both travel directions in canonical order.
var Directions = []Direction{DirectionLower, DirectionUpper}

func (d Direction) String() string {
	switch d {
	case DirectionLower:
		return "lower"
	case DirectionUpper:
		return "upper"
	}
	return "unknown"
}

// VehicleClass is a coarse vehicle classification.
type VehicleClass string

const (
	ClassCar     VehicleClass = "car"
	ClassTruck   VehicleClass = "truck"
	ClassUnknown VehicleClass = "unknown"
)

// Gap is an optional clearance distance. Absent values are represented
// explicitly rather than as zero, since a zero clearance is physically
// meaningful.
type Gap struct {
	Meters float64
	Valid  bool
}

// TrajectorySample is one vehicle observation at one frame. Samples are
// immutable once produced by the loader.
type TrajectorySample struct {
	VehicleID int
	Frame     int
	X         float64 // longitudinal position, meters
	LaneID    int
	Direction Direction
	Class     VehicleClass
	Speed     float64 // longitudinal velocity, m/s
	Length    float64 // vehicle length, meters
	FrontGap  Gap     // clearance to the preceding vehicle
	RearGap   Gap     // clearance to the following vehicle
}

// RecordingMetadata holds per-recording constants. One instance per
// recording, read-only after load.
type RecordingMetadata struct {
	ID            string
	FrameRate     float64 // frames per second
	Duration      float64 // seconds
	NumVehicles   int
	NumCars       int
	NumTrucks     int
	SpeedLimitMPS float64 // <= 0 means unknown / unrestricted

	// Lateral offsets of the lane boundary markings for each lane group,
	// in meters, ordered across the roadway.
	UpperLaneMarkings []float64
	LowerLaneMarkings []float64

	// Timestamp is the wall-clock start of the recording, if known.
	// The zero time means the recording carries no timestamp.
	Timestamp time.Time
}

// LaneMarkings returns the boundary offsets for the given direction.
func (m *RecordingMetadata) LaneMarkings(dir Direction) []float64 {
	if dir == DirectionUpper {
		return m.UpperLaneMarkings
	}
	return m.LowerLaneMarkings
}

// Recording bundles the metadata and trajectory samples of one recording.
type Recording struct {
	Meta    RecordingMetadata
	Samples []TrajectorySample
}
