package indexer

// ProgressReporter provides callbacks for reporting analysis progress.
// Implementations can display progress bars, log messages, or remain silent.
// Callbacks may arrive from several goroutines.
type ProgressReporter interface {
	// OnDiscoveryStart is called when file discovery begins.
	OnDiscoveryStart()

	// OnDiscoveryComplete is called with the number of candidate files found.
	OnDiscoveryComplete(files int)

	// OnFileProcessingStart is called before extraction starts.
	OnFileProcessingStart(totalFiles int)

	// OnFileProcessed is called after each file is extracted or skipped.
	OnFileProcessed(fileName string)

	// OnComplete is called when a run finishes successfully.
	OnComplete(stats *Stats)
}

// NoOpProgressReporter is a progress reporter that does nothing.
// Used when progress reporting is disabled (e.g., --quiet flag).
type NoOpProgressReporter struct{}

func (n *NoOpProgressReporter) OnDiscoveryStart()                    {}
func (n *NoOpProgressReporter) OnDiscoveryComplete(files int)        {}
func (n *NoOpProgressReporter) OnFileProcessingStart(totalFiles int) {}
func (n *NoOpProgressReporter) OnFileProcessed(fileName string)      {}
func (n *NoOpProgressReporter) OnComplete(stats *Stats)              {}
