// Command safety runs the crash prediction pipeline over a directory of
// highway trajectory recordings and writes per-recording result bundles,
// reports and an append-only sqlite result database.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/banshee-data/safety.report/internal/aadt"
	"github.com/banshee-data/safety.report/internal/flow"
	"github.com/banshee-data/safety.report/internal/highd"
	"github.com/banshee-data/safety.report/internal/hsm"
	"github.com/banshee-data/safety.report/internal/pipeline"
	"github.com/banshee-data/safety.report/internal/report"
	"github.com/banshee-data/safety.report/internal/resultdb"
	"github.com/banshee-data/safety.report/internal/units"
	"github.com/banshee-data/safety.report/internal/version"
)

var (
	dataRoot   = flag.String("data", "", "Directory containing highD recording subdirectories")
	outDir     = flag.String("out", "out", "Output directory for result bundles and reports")
	areaType   = flag.String("area", "urban", "Area type for SPF lookup: urban or rural")
	dirMode    = flag.String("direction-mode", "sum_directions", "SPF direction handling: sum_directions or combined_flow")
	spfPath    = flag.String("spf", "config/hsm_coefficients.csv", "SPF coefficient table (CSV)")
	sevPath    = flag.String("severity", "config/severity_distribution.csv", "Severity distribution table (CSV)")
	factPath   = flag.String("factors", "", "AADT expansion factor table (JSON); empty uses the x24 fallback")
	cmfPath    = flag.String("cmf", "", "Crash modification factor config (JSON); empty applies no adjustments")
	calib      = flag.Float64("calibration", 1.0, "SPF calibration factor")
	jobs       = flag.Int("jobs", 0, "Concurrent recording workers; 0 uses the CPU count")
	dbPath     = flag.String("results-db", "", "Optional sqlite result database path")
	binWidth   = flag.Float64("bin-width", flow.DefaultBinWidthSec, "Flow time-series bin width in seconds")
	refX       = flag.Float64("reference-x", 0, "Count vehicles at this longitudinal position instead of first sight; 0 disables")
	observed   = flag.Float64("observed-crashes", -1, "Observed crash count for EB combination; negative disables EB")
	obsYears   = flag.Float64("observed-years", 1, "Observation period in years for EB combination")
	writeHTML  = flag.Bool("html", true, "Write per-recording HTML chart pages")
	writePNG   = flag.Bool("png", true, "Write per-recording flow plots")
	speedUnits = flag.String("speed-units", units.KPH, "Speed unit in Markdown reports: mps, kph, kmph or mph")
	showVer    = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Println(version.String())
		return
	}

	if *dataRoot == "" {
		log.Fatal("-data is required")
	}
	if !units.IsValid(*speedUnits) {
		log.Fatalf("unknown speed unit %q (valid: %v)", *speedUnits, units.ValidUnits)
	}

	processor, err := buildProcessor()
	if err != nil {
		log.Fatalf("failed to configure pipeline: %v", err)
	}

	dirs, err := highd.IterRecordings(*dataRoot)
	if err != nil {
		log.Fatalf("failed to scan %s: %v", *dataRoot, err)
	}
	if len(dirs) == 0 {
		log.Fatalf("no recordings found under %s", *dataRoot)
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalf("failed to create output directory: %v", err)
	}

	var db *resultdb.DB
	var runID string
	if *dbPath != "" {
		db, err = resultdb.Open(*dbPath)
		if err != nil {
			log.Fatalf("failed to open result database: %v", err)
		}
		defer db.Close()

		runID, err = db.BeginRun(*dataRoot, *areaType, *dirMode)
		if err != nil {
			log.Fatalf("failed to register run: %v", err)
		}
		log.Printf("run %s: %d recordings", runID, len(dirs))
	}

	var processed, failed int
	processor.RunBatch(dirs, *jobs, func(out pipeline.Outcome) {
		if out.Err != nil {
			failed++
			if db != nil {
				if err := db.RecordFailure(runID, out.Dir, out.Err); err != nil {
					log.Printf("failed to record failure for %s: %v", out.Dir, err)
				}
			}
			return
		}

		processed++
		if err := writeOutputs(out.Result); err != nil {
			log.Printf("failed to write outputs for recording %s: %v", out.RecordingID, err)
		}
		if db != nil {
			if err := db.RecordResult(runID, out.Result); err != nil {
				log.Printf("failed to store result for recording %s: %v", out.RecordingID, err)
			}
		}
	})

	log.Printf("done: %d processed, %d failed", processed, failed)
	if processed == 0 {
		os.Exit(1)
	}
}

func buildProcessor() (*pipeline.Processor, error) {
	area := hsm.AreaType(*areaType)
	if area != hsm.Urban && area != hsm.Rural {
		return nil, fmt.Errorf("unknown area type %q", *areaType)
	}
	if *calib <= 0 {
		return nil, fmt.Errorf("calibration must be positive, got %v", *calib)
	}

	coefficients, err := hsm.LoadCoefficientTable(*spfPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load SPF coefficients: %w", err)
	}
	severity, err := hsm.LoadSeverityTable(*sevPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load severity distribution: %w", err)
	}

	engine := hsm.NewEngine(coefficients, severity)
	engine.Calibration = *calib
	switch hsm.DirectionMode(*dirMode) {
	case hsm.SumDirections, hsm.CombinedFlow:
		engine.Mode = hsm.DirectionMode(*dirMode)
	default:
		return nil, fmt.Errorf("unknown direction mode %q", *dirMode)
	}

	if *cmfPath != "" {
		engine.CMFs, err = hsm.LoadCMFSet(*cmfPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load CMF config: %w", err)
		}
	}

	var factors *aadt.FactorTable
	if *factPath != "" {
		factors, err = aadt.LoadFactorTable(*factPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load AADT factors: %w", err)
		}
	}

	cfg := pipeline.Config{
		Area: area,
		Flow: flow.Config{BinWidthSec: *binWidth},
	}
	if *refX != 0 {
		ref := *refX
		cfg.Flow.ReferenceX = &ref
	}
	if *observed >= 0 {
		obs := *observed
		cfg.ObservedCrashes = &obs
		cfg.ObservedYears = *obsYears
	}

	return &pipeline.Processor{Engine: engine, Factors: factors, Config: cfg}, nil
}

func writeOutputs(result *pipeline.Result) error {
	base := filepath.Join(*outDir, result.RecordingID)

	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	if err := os.WriteFile(base+".json", payload, 0o644); err != nil {
		return err
	}

	md, err := os.Create(base + ".md")
	if err != nil {
		return err
	}
	defer md.Close()
	if err := report.WriteMarkdown(md, result, *speedUnits); err != nil {
		return fmt.Errorf("failed to write markdown report: %w", err)
	}

	if *writeHTML {
		html, err := os.Create(base + ".html")
		if err != nil {
			return err
		}
		defer html.Close()
		if err := report.RenderHTML(html, result); err != nil {
			return fmt.Errorf("failed to render HTML report: %w", err)
		}
	}

	if *writePNG {
		if err := report.SaveFlowPlot(base+"_flow.png", result); err != nil {
			return err
		}
	}
	return nil
}
