package highd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRecordingFixture(t *testing.T, dir string) {
	t.Helper()

	meta := `id,frameRate,duration,numVehicles,numCars,numTrucks,speedLimit,upperLaneMarkings,lowerLaneMarkings,timeStamp
01,25,1034,30,24,6,33.33,8.51;12.59;16.43;20.31,0.00;3.60;7.20;10.80,2017-09-12T14:30:00
`
	tracksMeta := `id,width,height,initialFrame,finalFrame,numFrames,class,drivingDirection
1,4.5,1.8,1,100,100,Car,1
2,12.5,3.2,10,200,191,Truck,1
3,4.1,1.7,5,150,146,Car,2
`
	tracks := `frame,id,x,laneId,xVelocity,dhw
1,1,100.0,2,31.5,45.2
2,1,101.3,2,31.6,44.8
10,2,150.0,3,22.1,0
5,3,300.0,6,-30.2,51.0
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, MetaFile), []byte(meta), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, TracksMetaFile), []byte(tracksMeta), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, TracksFile), []byte(tracks), 0o644))
}

func TestLoadRecording(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeRecordingFixture(t, dir)

	rec, err := LoadRecording(dir)
	require.NoError(t, err)

	assert.Equal(t, "01", rec.Meta.ID)
	assert.Equal(t, 1034.0, rec.Meta.Duration)
	assert.Equal(t, 25.0, rec.Meta.FrameRate)
	assert.Equal(t, 30, rec.Meta.NumVehicles)
	assert.InDelta(t, 33.33, rec.Meta.SpeedLimitMPS, 1e-9)
	assert.Equal(t, []float64{0, 3.6, 7.2, 10.8}, rec.Meta.LowerLaneMarkings)
	assert.Len(t, rec.Meta.UpperLaneMarkings, 4)
	assert.False(t, rec.Meta.Timestamp.IsZero())
	assert.Equal(t, 14, rec.Meta.Timestamp.Hour())

	require.Len(t, rec.Samples, 4)

	want := TrajectorySample{
		VehicleID: 1,
		Frame:     1,
		X:         100.0,
		LaneID:    2,
		Direction: DirectionLower,
		Class:     ClassCar,
		Speed:     31.5,
		Length:    4.5,
		FrontGap:  Gap{Meters: 45.2, Valid: true},
	}
	if diff := cmp.Diff(want, rec.Samples[0]); diff != "" {
		t.Errorf("first sample mismatch (-want +got):\n%s", diff)
	}

	// dhw of 0 means no preceding vehicle, not a zero-length gap.
	truck := rec.Samples[2]
	assert.Equal(t, ClassTruck, truck.Class)
	assert.False(t, truck.FrontGap.Valid)

	upper := rec.Samples[3]
	assert.Equal(t, DirectionUpper, upper.Direction)
	assert.InDelta(t, -30.2, upper.Speed, 1e-9)
}

func TestLoadRecordingMissingFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := LoadRecording(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recording metadata")
}

func TestParseLaneMarkings(t *testing.T) {
	t.Parallel()

	t.Run("semicolon separated", func(t *testing.T) {
		t.Parallel()
		offsets, err := ParseLaneMarkings("0.0;3.6;7.2")
		require.NoError(t, err)
		assert.Equal(t, []float64{0, 3.6, 7.2}, offsets)
	})

	t.Run("bracketed list", func(t *testing.T) {
		t.Parallel()
		offsets, err := ParseLaneMarkings("[1.0, 2.0, 3.0]")
		require.NoError(t, err)
		assert.Equal(t, []float64{1, 2, 3}, offsets)
	})

	t.Run("empty", func(t *testing.T) {
		t.Parallel()
		offsets, err := ParseLaneMarkings("")
		require.NoError(t, err)
		assert.Empty(t, offsets)
	})

	t.Run("garbage", func(t *testing.T) {
		t.Parallel()
		_, err := ParseLaneMarkings("0.0;banana")
		assert.Error(t, err)
	})
}

func TestIterRecordings(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	recDir := filepath.Join(root, "02")
	require.NoError(t, os.Mkdir(recDir, 0o755))
	writeRecordingFixture(t, recDir)

	// A directory without recordingMeta.csv is skipped.
	require.NoError(t, os.Mkdir(filepath.Join(root, "not-a-recording"), 0o755))

	dirs, err := IterRecordings(root)
	require.NoError(t, err)
	require.Len(t, dirs, 1)
	assert.Equal(t, recDir, dirs[0])
}
