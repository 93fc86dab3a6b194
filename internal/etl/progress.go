package etl

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/franz/sparkify-etl/internal/util"
)

// BarProgress renders a progress bar while files load. The found line and
// the final processed line are still written as text.
type BarProgress struct {
	w     io.Writer
	bar   *progressbar.ProgressBar
	done  int
	total int
}

// NewBarProgress creates a BarProgress writing to w
func NewBarProgress(w io.Writer) *BarProgress {
	return &BarProgress{w: w}
}

func (p *BarProgress) Found(root string, total int) {
	fmt.Fprintf(p.w, "%d files found in %s\n", total, root)

	p.done, p.total = 0, total
	if total == 0 {
		return
	}
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(p.w),
		progressbar.OptionSetDescription("Loading"),
		progressbar.OptionSetWidth(util.BarWidth(os.Stdout.Fd())),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("files"),
		progressbar.OptionShowIts(),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func (p *BarProgress) Advance(done, total int) {
	p.done, p.total = done, total
	if p.bar != nil {
		p.bar.Set(done)
	}
}

func (p *BarProgress) Finish() {
	if p.bar == nil {
		return
	}
	p.bar.Finish()
	p.bar = nil
	if p.done > 0 {
		fmt.Fprintf(p.w, "%d/%d files processed.\n", p.done, p.total)
	}
}
