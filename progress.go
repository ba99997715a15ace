package main

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"screenshot-organizer/internal/organizer"
)

// batchProgress draws a bar for a move batch when out is a terminal and stays
// silent otherwise.
type batchProgress struct {
	out         io.Writer
	description string
	enabled     bool
	bar         *progressbar.ProgressBar
}

func newBatchProgress(out io.Writer, description string) *batchProgress {
	enabled := false
	if f, ok := out.(*os.File); ok {
		enabled = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &batchProgress{out: out, description: description, enabled: enabled}
}

func (p *batchProgress) update(pr organizer.Progress) {
	if !p.enabled {
		return
	}
	if p.bar == nil {
		p.bar = progressbar.NewOptions(pr.Total,
			progressbar.OptionSetWriter(p.out),
			progressbar.OptionSetDescription(p.description),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}
	_ = p.bar.Set(pr.Current)
}

func (p *batchProgress) finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}
