package ranking

import "testing"

func TestSearchHitBasenameAndExtension(t *testing.T) {
	tests := []struct {
		filename string
		base     string
		ext      string
	}{
		{`@@music\Artist\Album\01 Song.FLAC`, "01 Song.FLAC", "flac"},
		{`Song.mp3`, "Song.mp3", "mp3"},
		{`Folder\no_extension`, "no_extension", ""},
	}
	for _, tt := range tests {
		h := &SearchHit{Filename: tt.filename}
		if got := h.Basename(); got != tt.base {
			t.Errorf("Basename(%q) = %q, want %q", tt.filename, got, tt.base)
		}
		if got := h.Extension(); got != tt.ext {
			t.Errorf("Extension(%q) = %q, want %q", tt.filename, got, tt.ext)
		}
	}
}

func TestSearchHitDisplay(t *testing.T) {
	h := &SearchHit{
		Filename:   `a\Song.flac`,
		Size:       30 * 1024 * 1024,
		BitDepth:   intPtr(24),
		SampleRate: intPtr(96000),
		Length:     intPtr(245),
	}
	if got := h.DurationDisplay(); got != "4:05" {
		t.Errorf("DurationDisplay() = %q", got)
	}
	if got := h.QualityDisplay(); got != "24bit/96.0kHz" {
		t.Errorf("QualityDisplay() = %q", got)
	}
	if got := h.String(); got != "Song.flac (4:05, 24bit/96.0kHz, 30.0MB)" {
		t.Errorf("String() = %q", got)
	}

	bare := &SearchHit{Filename: "x.flac"}
	if bare.DurationDisplay() != "??:??" || bare.QualityDisplay() != "FLAC" {
		t.Errorf("Unexpected display for bare hit: %q / %q", bare.DurationDisplay(), bare.QualityDisplay())
	}

	mp3 := &SearchHit{BitRate: intPtr(320)}
	if got := mp3.QualityDisplay(); got != "320kbps" {
		t.Errorf("QualityDisplay() = %q, want 320kbps", got)
	}
}

func TestReferenceDurationDisplay(t *testing.T) {
	if got := (ReferenceTrack{DurationSecs: 429}).DurationDisplay(); got != "7:09" {
		t.Errorf("DurationDisplay() = %q, want 7:09", got)
	}
}
