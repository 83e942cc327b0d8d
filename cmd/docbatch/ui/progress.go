package ui

import (
	"fmt"
	"os"
	"sync"

	"github.com/schollz/progressbar/v3"

	"github.com/joseph-ayodele/docbatch/internal/core"
)

// RunProgress renders engine progress updates as a percentage bar on stderr.
type RunProgress struct {
	mu  sync.Mutex
	bar *progressbar.ProgressBar
}

func NewRunProgress() *RunProgress {
	return &RunProgress{}
}

// Update is safe to pass as a progress callback.
func (p *RunProgress) Update(u core.Progress) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar == nil {
		p.bar = progressbar.NewOptions(100,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetPredictTime(false),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "█",
				SaucerHead:    "█",
				SaucerPadding: "░",
				BarStart:      "│",
				BarEnd:        "│",
			}),
			progressbar.OptionOnCompletion(func() { fmt.Fprint(os.Stderr, "\n") }),
			progressbar.OptionSetRenderBlankState(true),
		)
	}
	p.bar.Describe(fmt.Sprintf("[%d/%d] %s", min(u.Index+1, u.Total), u.Total, u.Label))
	_ = p.bar.Set(int(u.Percent))
}

// Clear hides the bar so a prompt can take the line.
func (p *RunProgress) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil {
		_ = p.bar.Clear()
	}
}

// Finish completes the bar if a run was shown.
func (p *RunProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil {
		_ = p.bar.Finish()
		p.bar = nil
	}
}
