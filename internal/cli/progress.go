package cli

import (
	"fmt"
	"io"
	"log"
	"time"

	"github.com/mvp-joe/symgraph/internal/indexer"
	"github.com/schollz/progressbar/v3"
)

// CLIProgressReporter draws a progress bar on stderr while files are extracted.
type CLIProgressReporter struct {
	quiet   bool
	out     io.Writer
	fileBar *progressbar.ProgressBar
}

// NewCLIProgressReporter creates a new CLI progress reporter writing to out.
func NewCLIProgressReporter(out io.Writer, quiet bool) *CLIProgressReporter {
	return &CLIProgressReporter{
		quiet: quiet,
		out:   out,
	}
}

func (c *CLIProgressReporter) OnDiscoveryStart() {
	if c.quiet {
		return
	}
	log.Println("Discovering files...")
}

func (c *CLIProgressReporter) OnDiscoveryComplete(files int) {
	if c.quiet {
		return
	}
	log.Printf("Found %s source files\n", formatNumber(files))
}

func (c *CLIProgressReporter) OnFileProcessingStart(totalFiles int) {
	if c.quiet {
		return
	}
	c.fileBar = progressbar.NewOptions(totalFiles,
		progressbar.OptionSetWriter(c.out),
		progressbar.OptionSetDescription("Extracting symbols"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(c.out)
		}),
	)
}

// OnFileProcessed advances the bar. The bar serialises concurrent calls.
func (c *CLIProgressReporter) OnFileProcessed(fileName string) {
	if c.quiet || c.fileBar == nil {
		return
	}
	_ = c.fileBar.Add(1)
}

func (c *CLIProgressReporter) OnComplete(stats *indexer.Stats) {
	if c.quiet {
		return
	}
	if c.fileBar != nil {
		_ = c.fileBar.Finish()
		c.fileBar = nil
	}

	fmt.Fprintf(c.out, "✓ Extraction complete: %s symbols from %s files in %.1fs\n",
		formatNumber(stats.Symbols),
		formatNumber(stats.FilesExtracted),
		stats.Duration.Seconds())
	if stats.ParseErrors+stats.ExtractionErrors+stats.Conflicts > 0 {
		fmt.Fprintf(c.out, "  Parse errors:      %s\n", formatNumber(stats.ParseErrors))
		fmt.Fprintf(c.out, "  Extraction errors: %s\n", formatNumber(stats.ExtractionErrors))
		fmt.Fprintf(c.out, "  Conflicts:         %s\n", formatNumber(stats.Conflicts))
	}
}

// formatNumber formats integer with thousand separators.
// Examples: 1234 -> "1,234", 1234567 -> "1,234,567"
func formatNumber(n int) string {
	if n < 0 {
		return "-" + formatNumber(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}

	str := fmt.Sprintf("%d", n)
	var result string
	for i, c := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result += ","
		}
		result += string(c)
	}
	return result
}
