package spectral

const (
	// Below this RMS (on a [-1, 1] scale) a window carries no spectral evidence.
	silenceRMS = 0.001

	refBandLoHz = 2000.0
	refBandHiHz = 8000.0
	// Used when the reference band has no bins at all.
	fallbackRefDB = -60.0

	// Energy this far below the reference level counts as "gone".
	dropDB = 30.0

	highBandHz = 14000.0
	// Fewer high-band bins than this is too coarse to convict.
	minHighBins = 10
	// Adjacent below-threshold pairs needed before a drop is trusted.
	sustainedPairs = 3

	authenticRatio = 0.92
	warningKHz     = 19.0
	suspiciousKHz  = 17.0
)

// detectCutoff returns the frequency (Hz) where high-band energy first falls
// and stays more than dropDB below the reference level, or nyquistHz when no
// sustained drop exists. enough is false when the high band is too coarsely
// resolved to judge.
//
// The scan is a single pass over the ascending high-band bins with a counter
// of adjacent below-threshold pairs. Once sustainedPairs pairs have been seen,
// the cutoff is the bin two below-threshold positions behind the pair that
// completed the count.
func detectCutoff(p PSD, nyquistHz float64) (cutoffHz float64, enough bool) {
	first := len(p.Freqs)
	for i, f := range p.Freqs {
		if f >= highBandHz {
			first = i
			break
		}
	}
	highFreqs := p.Freqs[first:]
	highDB := p.DB[first:]
	if len(highFreqs) < minHighBins {
		return nyquistHz, false
	}

	ref, ok := p.MeanDB(refBandLoHz, refBandHiHz)
	if !ok {
		ref = fallbackRefDB
	}
	threshold := ref - dropDB

	// below holds indices into the high band, ascending.
	below := make([]int, 0, len(highDB))
	for i, v := range highDB {
		if v < threshold {
			below = append(below, i)
		}
	}

	consecutive := 0
	for i := 0; i+1 < len(below); i++ {
		if below[i+1]-below[i] != 1 {
			consecutive = 0
			continue
		}
		consecutive++
		if consecutive >= sustainedPairs {
			return highFreqs[below[i-2]], true
		}
	}
	return nyquistHz, true
}
