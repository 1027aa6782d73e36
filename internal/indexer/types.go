package indexer

import (
	"time"

	"github.com/mvp-joe/symgraph/internal/adapters"
	"github.com/mvp-joe/symgraph/internal/registry"
)

// Stats summarises one run.
type Stats struct {
	FilesDiscovered  int           `json:"files_discovered"`
	FilesExtracted   int           `json:"files_extracted"`
	FilesSkipped     int           `json:"files_skipped"` // No adapter claims the extension, or the file is denied
	ParseErrors      int           `json:"parse_errors"`
	ExtractionErrors int           `json:"extraction_errors"`
	Conflicts        int           `json:"conflicts"`
	Symbols          int           `json:"symbols"`
	Duration         time.Duration `json:"duration"`
}

// Result is everything one run produced. The registry belongs to the run and
// is discarded with it.
type Result struct {
	Registry         *registry.Registry
	ParseErrors      []*adapters.ParseError
	ExtractionErrors []*adapters.ExtractionError
	Conflicts        []registry.Conflict
	Stats            Stats
}
