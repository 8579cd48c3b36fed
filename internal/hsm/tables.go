package hsm

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// CollisionType distinguishes single-vehicle from multi-vehicle crashes.
type CollisionType string

const (
	SingleVehicle CollisionType = "sv"
	MultiVehicle  CollisionType = "mv"
)

// CollisionTypes lists the supported collision types in canonical order.
var CollisionTypes = []CollisionType{SingleVehicle, MultiVehicle}

// AreaType distinguishes urban from rural segments.
type AreaType string

const (
	Urban AreaType = "urban"
	Rural AreaType = "rural"
)

// Coefficient is one row of the SPF coefficient table. The log-linear SPF
// predicts a per-segment annual crash count:
//
//	N = exp(intercept + a*ln(AADT) + b*ln(L) + c*ln(n)) * L
//
// with L in miles and n the usable lane count.
type Coefficient struct {
	Area      AreaType
	Lanes     int
	Collision CollisionType
	Intercept float64
	AADTExp   float64
	LengthExp float64
	LanesExp  float64
}

// Evaluate computes the baseline SPF prediction. Inputs must already be
// validated as strictly positive.
func (c Coefficient) Evaluate(aadt, lengthMiles float64, lanes int) float64 {
	n := float64(lanes)
	ln := c.Intercept +
		c.AADTExp*math.Log(aadt) +
		c.LengthExp*math.Log(lengthMiles) +
		c.LanesExp*math.Log(n)
	return math.Exp(ln) * lengthMiles
}

type coeffKey struct {
	area      AreaType
	lanes     int
	collision CollisionType
}

// CoefficientTable maps {area type, lane count, collision type} to SPF
// coefficients. Lookup is exact; there is no nearest-match guessing.
type CoefficientTable struct {
	rows map[coeffKey]Coefficient
}

// NewCoefficientTable builds a table from rows. Duplicate keys are
// rejected so a bad table cannot silently shadow itself.
func NewCoefficientTable(rows []Coefficient) (*CoefficientTable, error) {
	table := &CoefficientTable{rows: make(map[coeffKey]Coefficient, len(rows))}
	for _, row := range rows {
		key := coeffKey{area: row.Area, lanes: row.Lanes, collision: row.Collision}
		if _, exists := table.rows[key]; exists {
			return nil, fmt.Errorf("duplicate SPF row for area=%s lanes=%d collision=%s", row.Area, row.Lanes, row.Collision)
		}
		table.rows[key] = row
	}
	return table, nil
}

// Lookup returns the coefficients for the exact key, or ErrNoMatchingSPF
// carrying the attempted key.
func (t *CoefficientTable) Lookup(area AreaType, lanes int, collision CollisionType) (Coefficient, error) {
	row, ok := t.rows[coeffKey{area: area, lanes: lanes, collision: collision}]
	if !ok {
		return Coefficient{}, fmt.Errorf("area=%s lanes=%d collision=%s: %w", area, lanes, collision, ErrNoMatchingSPF)
	}
	return row, nil
}

// LoadCoefficientTable reads the SPF coefficient table from a headed CSV
// with columns area_type, lane_count, collision_type, intercept,
// aadt_exponent, length_exponent, lanes_exponent.
func LoadCoefficientTable(path string) (*CoefficientTable, error) {
	records, err := readCSVRows(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read SPF coefficients: %w", err)
	}

	rows := make([]Coefficient, 0, len(records))
	for i, rec := range records {
		lanes, err := strconv.Atoi(rec["lane_count"])
		if err != nil {
			return nil, fmt.Errorf("coefficients row %d: bad lane_count %q: %w", i+1, rec["lane_count"], err)
		}
		row := Coefficient{
			Area:      AreaType(strings.ToLower(rec["area_type"])),
			Lanes:     lanes,
			Collision: CollisionType(strings.ToLower(rec["collision_type"])),
		}
		for _, field := range []struct {
			name string
			dst  *float64
		}{
			{"intercept", &row.Intercept},
			{"aadt_exponent", &row.AADTExp},
			{"length_exponent", &row.LengthExp},
			{"lanes_exponent", &row.LanesExp},
		} {
			v, err := strconv.ParseFloat(rec[field.name], 64)
			if err != nil {
				return nil, fmt.Errorf("coefficients row %d: bad %s %q: %w", i+1, field.name, rec[field.name], err)
			}
			*field.dst = v
		}
		rows = append(rows, row)
	}
	return NewCoefficientTable(rows)
}

// SeveritySplit divides a predicted count into fatal-or-injury and
// property-damage-only fractions. Splits are normalized so FI+PDO = 1.
type SeveritySplit struct {
	FI  float64
	PDO float64
}

type severityKey struct {
	area      AreaType
	collision CollisionType
}

// SeverityTable maps {area type, collision type} to a severity split.
type SeverityTable struct {
	rows map[severityKey]SeveritySplit
}

// SeverityRow is one row of the severity distribution table.
type SeverityRow struct {
	Area      AreaType
	Collision CollisionType
	FI        float64
	PDO       float64
}

// NewSeverityTable builds a severity table, normalizing each split.
func NewSeverityTable(rows []SeverityRow) *SeverityTable {
	table := &SeverityTable{rows: make(map[severityKey]SeveritySplit, len(rows))}
	for _, row := range rows {
		key := severityKey{area: row.Area, collision: row.Collision}
		table.rows[key] = SeveritySplit{FI: row.FI, PDO: row.PDO}.normalize()
	}
	return table
}

func (s SeveritySplit) normalize() SeveritySplit {
	total := s.FI + s.PDO
	if total <= 0 {
		return SeveritySplit{FI: 0, PDO: 1}
	}
	return SeveritySplit{FI: s.FI / total, PDO: s.PDO / total}
}

// Lookup returns the split for the key and whether it was present. Absent
// rows default to all-PDO; the caller flags the substitution.
func (t *SeverityTable) Lookup(area AreaType, collision CollisionType) (SeveritySplit, bool) {
	if t == nil || t.rows == nil {
		return SeveritySplit{FI: 0, PDO: 1}, false
	}
	split, ok := t.rows[severityKey{area: area, collision: collision}]
	if !ok {
		return SeveritySplit{FI: 0, PDO: 1}, false
	}
	return split, true
}

// LoadSeverityTable reads the severity distribution from a headed CSV with
// columns area_type, collision_type, fi_share, pdo_share.
func LoadSeverityTable(path string) (*SeverityTable, error) {
	records, err := readCSVRows(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read severity distribution: %w", err)
	}

	rows := make([]SeverityRow, 0, len(records))
	for i, rec := range records {
		fi, err := strconv.ParseFloat(rec["fi_share"], 64)
		if err != nil {
			return nil, fmt.Errorf("severity row %d: bad fi_share %q: %w", i+1, rec["fi_share"], err)
		}
		pdo, err := strconv.ParseFloat(rec["pdo_share"], 64)
		if err != nil {
			return nil, fmt.Errorf("severity row %d: bad pdo_share %q: %w", i+1, rec["pdo_share"], err)
		}
		rows = append(rows, SeverityRow{
			Area:      AreaType(strings.ToLower(rec["area_type"])),
			Collision: CollisionType(strings.ToLower(rec["collision_type"])),
			FI:        fi,
			PDO:       pdo,
		})
	}
	return NewSeverityTable(rows), nil
}

// readCSVRows reads a headed CSV file into column-name keyed maps.
func readCSVRows(path string) ([]map[string]string, error) {
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
	if len(records) < 2 {
		return nil, fmt.Errorf("%s has no data rows", path)
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
