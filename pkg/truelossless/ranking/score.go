package ranking

import (
	"math"
	"regexp"
	"strings"
)

// Point budgets per criterion.
const (
	durationPerfect    = 40.0
	durationNear       = 25.0
	durationFar        = 10.0
	durationFarLimit   = 30
	durationNearLimit  = 10
	durationMissing    = 15.0
	bitDepthPreferred  = 15.0
	bitDepthHiRes      = 12.0
	bitDepthOther      = 5.0
	sampleRateCD       = 10.0
	sampleRateHiRes    = 7.0
	sampleRateOther    = 3.0
	freeSlotPoints     = 10.0
	speedCapMBps       = 10.0
	emptyQueuePoints   = 5.0
	shortQueuePoints   = 2.0
	shortQueueLimit    = 5
	relevanceHalfScore = 7.5
)

var wordRe = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// durationScore returns the duration points for a hit of hitSecs against
// refSecs. ok is false when the hit must be excluded.
func durationScore(hitSecs *int, refSecs, tolerance int, relaxedLimit *int) (points float64, ok bool) {
	if hitSecs == nil || *hitSecs <= 0 {
		return durationMissing, true
	}

	diff := *hitSecs - refSecs
	if diff < 0 {
		diff = -diff
	}
	d := float64(diff)

	switch {
	case diff <= tolerance:
		return math.Max(0, durationPerfect-2*d), true
	case diff <= durationNearLimit:
		return math.Max(0, durationNear-3*(d-float64(tolerance))), true
	case diff <= durationFarLimit:
		return math.Max(0, durationFar-0.5*(d-durationNearLimit)), true
	case relaxedLimit != nil && diff <= *relaxedLimit:
		// a different cut of the same song the caller has agreed to accept
		return 0, true
	default:
		return 0, false
	}
}

// qualityScore prefers 16-bit/44.1kHz so a library stays consistent.
func qualityScore(bitDepth, sampleRate *int) float64 {
	var score float64

	switch {
	case bitDepth != nil && *bitDepth == 16:
		score += bitDepthPreferred
	case bitDepth != nil && *bitDepth == 24:
		score += bitDepthHiRes
	default:
		score += bitDepthOther
	}

	switch {
	case sampleRate != nil && *sampleRate == 44100:
		score += sampleRateCD
	case sampleRate != nil && (*sampleRate == 48000 || *sampleRate == 88200 || *sampleRate == 96000):
		score += sampleRateHiRes
	default:
		score += sampleRateOther
	}

	return score
}

func sourceScore(hasFreeSlot bool, uploadSpeed int64, queueLength int) float64 {
	var score float64
	if hasFreeSlot {
		score += freeSlotPoints
	}
	if uploadSpeed > 0 {
		score += math.Min(float64(uploadSpeed)/1_000_000, speedCapMBps)
	}
	switch {
	case queueLength == 0:
		score += emptyQueuePoints
	case queueLength < shortQueueLimit:
		score += shortQueuePoints
	}
	return score
}

// relevanceScore measures recall of the reference artist and title words in
// the remote path. Extra words in the path are not penalized.
func relevanceScore(filename string, ref ReferenceTrack) float64 {
	fileWords := wordSet(filename)
	return relevanceHalfScore*recall(wordSet(ref.Artist), fileWords) +
		relevanceHalfScore*recall(wordSet(ref.Title), fileWords)
}

func wordSet(s string) map[string]struct{} {
	words := wordRe.FindAllString(strings.ToLower(s), -1)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// recall is |want ∩ have| / |want|, 0 for an empty want set.
func recall(want, have map[string]struct{}) float64 {
	if len(want) == 0 {
		return 0
	}
	hits := 0
	for w := range want {
		if _, ok := have[w]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(want))
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
