package retrieval

import (
	"os"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

// ProgressReporter receives rebuild progress, one tick per record
type ProgressReporter interface {
	Start(total int)
	Increment()
	Finish()
}

// ReindexProgress renders a progress bar on stderr during a rebuild
type ReindexProgress struct {
	enabled bool
	bar     *progressbar.ProgressBar
}

// NewReindexProgress returns a nil reporter when disabled, which the
// engine treats as no progress output.
func NewReindexProgress(enabled bool) ProgressReporter {
	if !enabled {
		return nil
	}
	return &ReindexProgress{enabled: true}
}

func (p *ReindexProgress) Start(total int) {
	if !p.enabled || total <= 0 {
		return
	}
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("reindexing"),
		progressbar.OptionSetWidth(32),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

func (p *ReindexProgress) Increment() {
	if p.bar == nil {
		return
	}
	_ = p.bar.Add(1)
}

func (p *ReindexProgress) Finish() {
	if p.bar == nil {
		return
	}
	_ = p.bar.Finish()
}

// DefaultProgressEnabled reports whether stderr is a terminal
func DefaultProgressEnabled() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}
