package irblaster

/*------------------------------------------------------------------
 *
 * Purpose:	Periodic report on the capture stream.
 *
 * Description:	There is no indication that the receiver works until
 *		something lights it up, so every interval we log the
 *		effective sample rate, the number of restarts and the
 *		peak energy seen.  A sample rate far from nominal points
 *		at a clock or driver problem.
 *
 *		The first report is suppressed because the first
 *		interval did not start on a block boundary.  To avoid a
 *		long wait for the first real one, the first interval is
 *		only a few seconds.
 *
 *---------------------------------------------------------------*/

import (
	"time"

	"github.com/charmbracelet/log"
)

const firstStatsInterval = 3 * time.Second

type CaptureStats struct {
	logger   *log.Logger
	clk      Clock
	interval time.Duration

	last          time.Time
	blocks        int
	restarts      int
	peak          int16
	suppressFirst bool
	reports       int
}

// NewCaptureStats reports every interval.  Zero turns reporting off.
func NewCaptureStats(logger *log.Logger, clk Clock, interval time.Duration) *CaptureStats {
	return &CaptureStats{logger: logger, clk: clk, interval: interval} //nolint:exhaustruct
}

// Add counts blocks delivered by one poll, or one restart.
func (s *CaptureStats) Add(blocks int, restarted bool) {
	if s.interval <= 0 {
		return
	}

	var now = s.clk.Now()

	if s.last.IsZero() {
		s.suppressFirst = true
		s.last = now.Add(firstStatsInterval - s.interval)
	}

	s.blocks += blocks
	if restarted {
		s.restarts++
	}

	if now.Sub(s.last) < s.interval {
		return
	}

	if s.suppressFirst {
		s.suppressFirst = false
	} else {
		var elapsed = now.Sub(s.last).Seconds()
		var rate = float64(s.blocks*BlockSize) / elapsed / 1000.0

		s.logger.Info("capture", "rate_khz", float64(int(rate*10))/10, "restarts", s.restarts, "peak", s.peak)
		s.reports++
	}

	s.last = now
	s.blocks = 0
	s.restarts = 0
	s.peak = 0
}

// Observe records the energy of one processed block.
func (s *CaptureStats) Observe(e *Energy) {
	s.peak = max(s.peak, e.Peak())
}

// Reports is how many reports have been logged.
func (s *CaptureStats) Reports() int {
	return s.reports
}
