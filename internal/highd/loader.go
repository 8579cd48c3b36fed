package highd

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// File names that make up one recording directory.
const (
	MetaFile       = "recordingMeta.csv"
	TracksMetaFile = "tracksMeta.csv"
	TracksFile     = "tracks.csv"
)

// vehicleInfo carries the per-vehicle attributes joined onto every sample.
type vehicleInfo struct {
	direction Direction
	class     VehicleClass
	length    float64
}

// LoadRecording reads one recording directory into memory. The directory
// must contain recordingMeta.csv, tracksMeta.csv and tracks.csv.
func LoadRecording(dir string) (*Recording, error) {
	metaRows, err := readCSV(filepath.Join(dir, MetaFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read recording metadata: %w", err)
	}
	if len(metaRows) == 0 {
		return nil, fmt.Errorf("empty metadata in %s", filepath.Join(dir, MetaFile))
	}

	meta, err := parseMeta(metaRows[0], filepath.Base(dir))
	if err != nil {
		return nil, fmt.Errorf("failed to parse recording metadata: %w", err)
	}

	trackRows, err := readCSV(filepath.Join(dir, TracksMetaFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read tracks metadata: %w", err)
	}
	vehicles, err := parseVehicles(trackRows)
	if err != nil {
		return nil, fmt.Errorf("failed to parse tracks metadata: %w", err)
	}

	sampleRows, err := readCSV(filepath.Join(dir, TracksFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read tracks: %w", err)
	}
	samples, err := parseSamples(sampleRows, vehicles)
	if err != nil {
		return nil, fmt.Errorf("failed to parse tracks: %w", err)
	}

	return &Recording{Meta: meta, Samples: samples}, nil
}

// IterRecordings returns the recording directories found directly under
// root, sorted by name. A directory counts as a recording when it contains
// a recordingMeta.csv.
func IterRecordings(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to scan data root: %w", err)
	}

	var dirs []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		candidate := filepath.Join(root, entry.Name())
		if _, err := os.Stat(filepath.Join(candidate, MetaFile)); err != nil {
			log.Printf("skipping %s: no %s", candidate, MetaFile)
			continue
		}
		dirs = append(dirs, candidate)
	}
	sort.Strings(dirs)
	return dirs, nil
}

// readCSV reads a headed CSV file into a slice of column-name keyed maps.
func readCSV(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(records) < 1 {
		return nil, nil
	}

	header := records[0]
	rows := make([]map[string]string, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(record) {
				row[strings.TrimSpace(name)] = strings.TrimSpace(record[i])
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseMeta(row map[string]string, fallbackID string) (RecordingMetadata, error) {
	meta := RecordingMetadata{
		ID:        firstNonEmpty(row["id"], fallbackID),
		FrameRate: parseFloatDefault(row["frameRate"], 25.0),
	}

	var err error
	if meta.Duration, err = parseFloatField(row, "duration"); err != nil {
		return meta, err
	}
	meta.NumVehicles = int(parseFloatDefault(row["numVehicles"], 0))
	meta.NumCars = int(parseFloatDefault(row["numCars"], 0))
	meta.NumTrucks = int(parseFloatDefault(row["numTrucks"], 0))
	meta.SpeedLimitMPS = parseFloatDefault(row["speedLimit"], -1)

	if meta.UpperLaneMarkings, err = ParseLaneMarkings(row["upperLaneMarkings"]); err != nil {
		return meta, fmt.Errorf("bad upperLaneMarkings: %w", err)
	}
	if meta.LowerLaneMarkings, err = ParseLaneMarkings(row["lowerLaneMarkings"]); err != nil {
		return meta, fmt.Errorf("bad lowerLaneMarkings: %w", err)
	}

	meta.Timestamp = parseTimestamp(row)
	return meta, nil
}

// ParseLaneMarkings parses a lane-marking offset list. highD exports them as
// a semicolon-separated list; JSON-style bracketed lists are also accepted.
func ParseLaneMarkings(value string) ([]float64, error) {
	value = strings.TrimSpace(value)
	value = strings.Trim(value, "[]")
	if value == "" {
		return nil, nil
	}
	value = strings.ReplaceAll(value, ";", ",")

	var offsets []float64
	for part := range strings.SplitSeq(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("bad offset %q: %w", part, err)
		}
		offsets = append(offsets, v)
	}
	return offsets, nil
}

func parseTimestamp(row map[string]string) time.Time {
	for _, key := range []string{"timeStamp", "timestamp", "date"} {
		value := row[key]
		if value == "" {
			continue
		}
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
			if ts, err := time.Parse(layout, value); err == nil {
				return ts
			}
		}
	}
	return time.Time{}
}

func parseVehicles(rows []map[string]string) (map[int]vehicleInfo, error) {
	vehicles := make(map[int]vehicleInfo, len(rows))
	for _, row := range rows {
		id, err := strconv.Atoi(row["id"])
		if err != nil {
			return nil, fmt.Errorf("bad vehicle id %q: %w", row["id"], err)
		}
		dir := Direction(int(parseFloatDefault(row["drivingDirection"], 0)))
		if dir != DirectionLower && dir != DirectionUpper {
			return nil, fmt.Errorf("vehicle %d: bad drivingDirection %q", id, row["drivingDirection"])
		}
		vehicles[id] = vehicleInfo{
			direction: dir,
			class:     classifyVehicle(row["class"]),
			// highD stores the bounding-box length in the width column.
			length: parseFloatDefault(row["width"], 0),
		}
	}
	return vehicles, nil
}

func classifyVehicle(value string) VehicleClass {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "car", "0":
		return ClassCar
	case "truck", "1":
		return ClassTruck
	default:
		return ClassUnknown
	}
}

func parseSamples(rows []map[string]string, vehicles map[int]vehicleInfo) ([]TrajectorySample, error) {
	samples := make([]TrajectorySample, 0, len(rows))
	for _, row := range rows {
		id, err := strconv.Atoi(row["id"])
		if err != nil {
			return nil, fmt.Errorf("bad sample id %q: %w", row["id"], err)
		}
		info, ok := vehicles[id]
		if !ok {
			// Orphan track rows happen when recordings are truncated; skip.
			continue
		}

		frame, err := strconv.Atoi(row["frame"])
		if err != nil {
			return nil, fmt.Errorf("vehicle %d: bad frame %q: %w", id, row["frame"], err)
		}

		sample := TrajectorySample{
			VehicleID: id,
			Frame:     frame,
			X:         parseFloatDefault(row["x"], 0),
			LaneID:    int(parseFloatDefault(row["laneId"], 0)),
			Direction: info.direction,
			Class:     info.class,
			Speed:     parseFloatDefault(row["xVelocity"], 0),
			Length:    info.length,
		}
		// dhw is the distance headway to the preceding vehicle; highD
		// writes 0 when there is no preceding vehicle, which maps to "not
		// present" rather than a zero-length gap.
		sample.FrontGap = parseGap(row["dhw"])
		sample.RearGap = parseGap(row["rearGap"])

		samples = append(samples, sample)
	}
	return samples, nil
}

func parseGap(value string) Gap {
	if value == "" {
		return Gap{}
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil || v <= 0 {
		return Gap{}
	}
	return Gap{Meters: v, Valid: true}
}

func parseFloatField(row map[string]string, key string) (float64, error) {
	value, ok := row[key]
	if !ok || value == "" {
		return 0, fmt.Errorf("missing required column %q", key)
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("bad %s %q: %w", key, value, err)
	}
	return v, nil
}

func parseFloatDefault(value string, fallback float64) float64 {
	if value == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
