package prefetch

// Metrics counts how well the cache predicted the requests it served. All
// counters are in pixels.
//
// GoodGuesses are requested pixels that were already cached, MissedGuesses
// are requested pixels that had to be fetched synchronously, and
// ExtraGuesses are cached pixels that the request did not use.
type Metrics struct {
	ProcessedPixels uint64 `json:"processed_pixels"`
	GoodGuesses     uint64 `json:"good_guesses"`
	MissedGuesses   uint64 `json:"missed_guesses"`
	ExtraGuesses    uint64 `json:"extra_guesses"`
}

func (m Metrics) percent(v uint64) float64 {
	if m.ProcessedPixels == 0 {
		return 0
	}
	return 100 * float64(v) / float64(m.ProcessedPixels)
}

// PercentGood returns GoodGuesses as a percentage of ProcessedPixels.
func (m Metrics) PercentGood() float64 { return m.percent(m.GoodGuesses) }

// PercentMissed returns MissedGuesses as a percentage of ProcessedPixels.
func (m Metrics) PercentMissed() float64 { return m.percent(m.MissedGuesses) }

// PercentExtra returns ExtraGuesses as a percentage of ProcessedPixels. It
// can exceed 100 when many prefetched pixels go unused.
func (m Metrics) PercentExtra() float64 { return m.percent(m.ExtraGuesses) }

func (m *Metrics) add(d Metrics) {
	m.ProcessedPixels += d.ProcessedPixels
	m.GoodGuesses += d.GoodGuesses
	m.MissedGuesses += d.MissedGuesses
	m.ExtraGuesses += d.ExtraGuesses
}
