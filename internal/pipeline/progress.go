package pipeline

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pspoerri/rasterprefetch/internal/prefetch"
)

const barWidth = 30

// progressBar redraws a single terminal line showing regions done, the
// share of pixels served from the prefetched slot and the remaining time.
type progressBar struct {
	w        io.Writer
	label    string
	total    int64
	done     atomic.Int64
	metrics  func() prefetch.Metrics
	start    time.Time
	stop     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
	drawMu   sync.Mutex
}

// newProgressBar starts redrawing every interval. metrics is polled from the
// redraw goroutine and must be safe for concurrent use.
func newProgressBar(w io.Writer, label string, total int64, interval time.Duration, metrics func() prefetch.Metrics) *progressBar {
	pb := &progressBar{
		w:       w,
		label:   label,
		total:   total,
		metrics: metrics,
		start:   time.Now(),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go func() {
		defer close(pb.stopped)
		tick := time.NewTicker(interval)
		defer tick.Stop()
		for {
			select {
			case <-pb.stop:
				return
			case <-tick.C:
				pb.draw()
			}
		}
	}()
	return pb
}

func (pb *progressBar) Increment() { pb.done.Add(1) }

// Finish draws the final state and ends the line. Calling it twice is safe.
func (pb *progressBar) Finish() {
	pb.stopOnce.Do(func() {
		close(pb.stop)
		<-pb.stopped
		pb.draw()
		fmt.Fprintln(pb.w)
	})
}

func (pb *progressBar) draw() {
	pb.drawMu.Lock()
	defer pb.drawMu.Unlock()

	done := pb.done.Load()
	frac := 1.0
	if pb.total > 0 {
		frac = min(float64(done)/float64(pb.total), 1)
	}
	filled := int(barWidth * frac)

	elapsed := time.Since(pb.start)
	eta := "--"
	if done > 0 && done < pb.total {
		left := time.Duration(float64(elapsed) / float64(done) * float64(pb.total-done))
		eta = formatDuration(left)
	}

	var good float64
	if pb.metrics != nil {
		good = pb.metrics().PercentGood()
	}

	var line strings.Builder
	fmt.Fprintf(&line, "\r%s [%s%s] %3.0f%%  %d/%d regions  hit %.1f%%  %s elapsed  eta %s\033[K",
		pb.label,
		strings.Repeat("=", filled), strings.Repeat(" ", barWidth-filled),
		frac*100, done, pb.total, good, formatDuration(elapsed), eta)
	io.WriteString(pb.w, line.String())
}

// formatDuration prints whole seconds, switching to minutes from one minute
// on: "0s", "45s", "1m23s".
func formatDuration(d time.Duration) string {
	secs := int(d / time.Second)
	if secs < 60 {
		return fmt.Sprintf("%ds", secs)
	}
	return fmt.Sprintf("%dm%02ds", secs/60, secs%60)
}
