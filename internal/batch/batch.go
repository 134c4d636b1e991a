// Package batch runs archive operations over many archives, isolating
// per-item failures and aggregating results. One bad archive never aborts
// the rest of the batch.
package batch

import (
	"fmt"
	"path/filepath"

	"github.com/Nady-Emad/zipman/internal/archive"
	"github.com/Nady-Emad/zipman/internal/compression"
	"github.com/Nady-Emad/zipman/internal/progress"
	"github.com/Nady-Emad/zipman/internal/validate"
)

// CreateOp describes one archive to create.
type CreateOp struct {
	ArchivePath string
	Sources     []string
	BaseDir     string
}

// ExtractOp describes one archive to extract.
type ExtractOp struct {
	ArchivePath string
	DestDir     string
	Members     []string
}

// ItemError attributes a failure to the archive it came from.
type ItemError struct {
	Item    string
	Message string
}

func (e ItemError) String() string {
	return fmt.Sprintf("%s: %s", e.Item, e.Message)
}

// Result aggregates the outcome of a batch. Successful+Failed always equals
// Total, and Errors holds exactly one entry per failed item, in input order.
type Result struct {
	Total      int
	Successful int
	Failed     int
	Errors     []ItemError
}

// Processor runs batches sequentially. The batch-level tracker spans the
// whole run with one update per item; the inner engine reports fine-grained
// progress through the same callback.
type Processor struct {
	tracker *progress.Tracker
	engine  *archive.Manager
}

// New creates a Processor reporting through callback.
func New(callback progress.Callback) *Processor {
	return &Processor{
		tracker: progress.NewTracker(callback),
		engine:  archive.New(callback),
	}
}

// Tracker returns the batch-level progress tracker.
func (p *Processor) Tracker() *progress.Tracker {
	return p.tracker
}

// Create builds every archive in operations with one compression method and
// password for the whole batch.
func (p *Processor) Create(operations []CreateOp, method compression.Method, password string) Result {
	result := Result{Total: len(operations)}
	p.tracker.Start(len(operations), "Starting batch create...")

	for _, op := range operations {
		p.runItem(&result, op.ArchivePath, func() archive.Result {
			return p.engine.Create(op.ArchivePath, op.Sources, method, password, op.BaseDir)
		})
	}

	p.tracker.Complete(fmt.Sprintf("Batch create complete: %d/%d successful", result.Successful, result.Total))
	return result
}

// Extract extracts every archive in operations.
func (p *Processor) Extract(operations []ExtractOp, password string) Result {
	result := Result{Total: len(operations)}
	p.tracker.Start(len(operations), "Starting batch extract...")

	for _, op := range operations {
		p.runItem(&result, op.ArchivePath, func() archive.Result {
			return p.engine.Extract(op.ArchivePath, op.DestDir, password, op.Members)
		})
	}

	p.tracker.Complete(fmt.Sprintf("Batch extract complete: %d/%d successful", result.Successful, result.Total))
	return result
}

// Verify structurally validates every archive in archivePaths.
func (p *Processor) Verify(archivePaths []string) Result {
	result := Result{Total: len(archivePaths)}
	p.tracker.Start(len(archivePaths), "Starting batch verify...")

	for _, path := range archivePaths {
		p.runItem(&result, path, func() archive.Result {
			valid, message := validate.ValidateStructure(path)
			if !valid {
				return archive.Result{Err: message}
			}
			return archive.Result{Success: true}
		})
	}

	p.tracker.Complete(fmt.Sprintf("Batch verify complete: %d/%d valid", result.Successful, result.Total))
	return result
}

// runItem invokes one operation inside a guard, records the outcome in the
// accumulator, and advances the batch tracker whether it succeeded or not.
func (p *Processor) runItem(result *Result, item string, fn func() archive.Result) {
	r := guarded(fn)
	if r.Success {
		result.Successful++
	} else {
		result.Failed++
		result.Errors = append(result.Errors, ItemError{Item: item, Message: r.Err})
	}
	p.tracker.Increment("Processing: " + filepath.Base(item))
}

// guarded converts a panic from the wrapped operation into a failed result
// so a single item cannot unwind the batch loop.
func guarded(fn func() archive.Result) (r archive.Result) {
	defer func() {
		if rec := recover(); rec != nil {
			r = archive.Result{Err: fmt.Sprintf("internal error: %v", rec)}
		}
	}()
	return fn()
}
