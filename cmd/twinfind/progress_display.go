package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"twinfind/internal/logging"
	"twinfind/internal/progress"
)

// progressDisplay draws coalesced progress updates as a bar on a terminal.
// Without a terminal, sampled updates go to the debug log instead.
type progressDisplay struct {
	out       io.Writer
	coalescer *progress.Coalescer
	done      chan struct{}

	bar   *progressbar.ProgressBar
	stage int
	max   int64

	logger  *slog.Logger
	sampler *logging.ProgressSampler
}

func newProgressDisplay(out io.Writer, logger *slog.Logger, enabled bool) *progressDisplay {
	d := &progressDisplay{out: out, stage: -1}
	if !enabled {
		return d
	}
	if !isTerminal(out) {
		if logger == nil || !logger.Enabled(context.Background(), slog.LevelDebug) {
			return d
		}
		d.logger = logger
		d.sampler = logging.NewProgressSampler(10)
	}
	d.coalescer = progress.NewCoalescer(1, 100*time.Millisecond)
	d.done = make(chan struct{})
	go d.loop()
	return d
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// sink returns nil when the display is off so trackers discard updates.
func (d *progressDisplay) sink() progress.Sink {
	if d.coalescer == nil {
		return nil
	}
	return d.coalescer
}

func (d *progressDisplay) loop() {
	defer close(d.done)
	for u := range d.coalescer.Updates() {
		if u.State.Terminal() {
			continue
		}
		if d.sampler != nil {
			d.logProgress(u)
			continue
		}
		d.show(u)
	}
	if d.bar != nil {
		_ = d.bar.Clear()
	}
}

func (d *progressDisplay) show(u progress.Update) {
	total := u.ToCheck
	if total <= 0 {
		total = -1
	}
	if d.bar == nil || u.StageIndex != d.stage {
		if d.bar != nil {
			_ = d.bar.Clear()
		}
		label := u.Stage
		if label == "" {
			label = u.State.String()
		}
		d.bar = progressbar.NewOptions64(total,
			progressbar.OptionSetWriter(d.out),
			progressbar.OptionSetDescription(fmt.Sprintf("[%d/%d] %s", u.StageIndex+1, u.StageCount, label)),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(30),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
		d.stage = u.StageIndex
		d.max = total
	}
	if total != d.max {
		d.bar.ChangeMax64(total)
		d.max = total
	}
	_ = d.bar.Set64(u.Checked)
}

func (d *progressDisplay) logProgress(u progress.Update) {
	stage := u.Stage
	if stage == "" {
		stage = u.State.String()
	}
	if !d.sampler.ShouldLog(u.Percent(), stage) {
		return
	}
	d.logger.Debug("scan progress",
		logging.String(logging.FieldStage, stage),
		logging.Int64("checked", u.Checked),
		logging.Int64("to_check", u.ToCheck),
		logging.Float64("percent", u.Percent()))
}

// finish flushes the final update and removes the bar.
func (d *progressDisplay) finish() {
	if d.coalescer == nil {
		return
	}
	d.coalescer.Close()
	<-d.done
}
