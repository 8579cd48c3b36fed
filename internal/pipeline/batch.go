package pipeline

import (
	"log"
	"runtime"
	"sync"

	"github.com/banshee-data/safety.report/internal/highd"
)

// Outcome is the terminal state of one recording in a batch: either a
// Result or the error that abandoned it.
type Outcome struct {
	Dir         string
	RecordingID string
	Result      *Result
	Err         error
}

// RunBatch processes recording directories on a bounded worker pool and
// delivers each outcome to emit. Outcomes are emitted one at a time, so an
// append-only sink never sees interleaved writes for a single recording.
// A failed recording is reported and abandoned; it never aborts the batch
// and is not retried.
func (p *Processor) RunBatch(dirs []string, jobs int, emit func(Outcome)) {
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}

	work := make(chan string)
	var wg sync.WaitGroup
	var emitMu sync.Mutex

	for range jobs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for dir := range work {
				out := p.processDir(dir)
				emitMu.Lock()
				emit(out)
				emitMu.Unlock()
			}
		}()
	}

	for _, dir := range dirs {
		work <- dir
	}
	close(work)
	wg.Wait()
}

func (p *Processor) processDir(dir string) Outcome {
	out := Outcome{Dir: dir}

	rec, err := highd.LoadRecording(dir)
	if err != nil {
		log.Printf("failed to load recording %s: %v", dir, err)
		out.Err = err
		return out
	}
	out.RecordingID = rec.Meta.ID

	result, err := p.Process(rec)
	if err != nil {
		log.Printf("failed to process recording %s: %v", rec.Meta.ID, err)
		out.Err = err
		return out
	}
	out.Result = result
	return out
}
