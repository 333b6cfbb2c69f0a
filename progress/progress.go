// Package progress reports transfer progress for single-file downloads.
package progress

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Reporter is notified while bytes of one file are transferred.
type Reporter interface {
	Start(total int64, description string)
	Add(n int64)
	Finish()
	Abort()
}

// Factory creates a reporter for each new transfer.
type Factory func() Reporter

// CLIProgress renders a terminal progress bar with a sampled transfer rate.
type CLIProgress struct {
	out         io.Writer
	bar         *progressbar.ProgressBar
	sampler     *RateSampler
	description string
}

// NewCLIProgress creates a progress bar reporter writing to stderr.
func NewCLIProgress() *CLIProgress {
	return NewCLIProgressTo(os.Stderr)
}

// NewCLIProgressTo creates a progress bar reporter writing to w.
func NewCLIProgressTo(w io.Writer) *CLIProgress {
	return &CLIProgress{out: w}
}

// Start initializes the bar. A negative total renders a spinner.
func (p *CLIProgress) Start(total int64, description string) {
	p.description = description
	p.sampler = NewRateSampler(time.Second)
	p.bar = progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(p.out),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(p.out, "\n")
		}),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: "-",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

// Add advances the bar and refreshes the rate once per sampling window.
func (p *CLIProgress) Add(n int64) {
	if p.bar == nil {
		return
	}
	_ = p.bar.Add64(n)
	if rate, ok := p.sampler.Add(n); ok {
		p.bar.Describe(fmt.Sprintf("%s [%s]", p.description, FormatSpeed(rate)))
	}
}

// Finish completes the bar.
func (p *CLIProgress) Finish() {
	if p.bar != nil {
		p.bar.Describe(p.description + " Done!")
		_ = p.bar.Finish()
	}
}

// Abort stops rendering without filling the bar.
func (p *CLIProgress) Abort() {
	if p.bar != nil {
		_ = p.bar.Exit()
		fmt.Fprint(p.out, "\n")
	}
}

// NoOp discards all progress updates.
type NoOp struct{}

func (NoOp) Start(int64, string) {}
func (NoOp) Add(int64) {}
func (NoOp) Finish() {}
func (NoOp) Abort() {}

// Reader wraps a byte stream and reports every read to a Reporter.
type Reader struct {
	reader   io.Reader
	reporter Reporter
	total    int64
	current  int64
}

// NewReader creates a progress-reporting reader. Total is -1 when unknown.
func NewReader(r io.Reader, total int64, reporter Reporter) *Reader {
	return &Reader{reader: r, reporter: reporter, total: total}
}

// Read implements io.Reader.
func (r *Reader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if n > 0 {
		r.current += int64(n)
		r.reporter.Add(int64(n))
	}
	return n, err
}

// BytesRead returns the cumulative byte count read so far.
func (r *Reader) BytesRead() int64 {
	return r.current
}

// Total returns the declared length, or -1 when unknown.
func (r *Reader) Total() int64 {
	return r.total
}
