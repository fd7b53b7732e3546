package spectral

import "fmt"

// Classification orders verdicts by decreasing confidence that the file is
// genuinely lossless.
type Classification string

const (
	Authentic  Classification = "AUTHENTIC"
	Warning    Classification = "WARNING"
	Suspicious Classification = "SUSPICIOUS"
	Fake       Classification = "FAKE"
)

// Rank is 0 for AUTHENTIC up to 3 for FAKE; -1 for anything unknown.
func (c Classification) Rank() int {
	switch c {
	case Authentic:
		return 0
	case Warning:
		return 1
	case Suspicious:
		return 2
	case Fake:
		return 3
	default:
		return -1
	}
}

func (c Classification) Emoji() string {
	switch c {
	case Authentic:
		return "✅"
	case Warning:
		return "⚠️"
	case Suspicious:
		return "\U0001f7e0"
	case Fake:
		return "❌"
	default:
		return "❓"
	}
}

func (c Classification) Label() string {
	switch c {
	case Authentic:
		return "Lossless OK"
	case Warning:
		return "Possible transcode"
	case Suspicious:
		return "Likely transcode"
	case Fake:
		return "Fake lossless"
	default:
		return string(c)
	}
}

// Verdict is the outcome of one spectral analysis. It is never modified
// after Analyze returns it.
type Verdict struct {
	Classification Classification `json:"classification"`
	CutoffKHz      float64        `json:"cutoff_khz"`
	NyquistKHz     float64        `json:"nyquist_khz"`
	SampleRate     int            `json:"sample_rate"`
	BitDepth       int            `json:"bit_depth"`
}

// Display renders a one-line summary for chat or terminal output.
func (v Verdict) Display() string {
	if v.Classification == Authentic {
		return fmt.Sprintf("%s %s (spectrum to %.1fkHz)", v.Classification.Emoji(), v.Classification.Label(), v.CutoffKHz)
	}
	return fmt.Sprintf("%s %s (cutoff %.1fkHz)", v.Classification.Emoji(), v.Classification.Label(), v.CutoffKHz)
}

// classify maps a cutoff onto the verdict tiers. The absolute kHz tiers were
// tuned against the cutoff position reported by detectCutoff.
func classify(cutoffKHz, nyquistKHz float64) Classification {
	switch {
	case cutoffKHz >= nyquistKHz*authenticRatio:
		return Authentic
	case cutoffKHz >= warningKHz:
		return Warning
	case cutoffKHz >= suspiciousKHz:
		return Suspicious
	default:
		return Fake
	}
}
