package ranking

import "testing"

const slskdArray = `[
  {
    "username": "alice",
    "hasFreeUploadSlot": true,
    "uploadSpeed": 3500000,
    "queueLength": 0,
    "files": [
      {"filename": "Music\\Daft Punk\\Around the World.flac", "size": 41000000, "bitDepth": 16, "sampleRate": 44100, "length": 429},
      {"filename": "Music\\Daft Punk\\Around the World.mp3", "size": 9000000, "bitRate": 320, "length": 429},
      {"filename": "Music\\Daft Punk\\cover.jpg", "size": 120000}
    ]
  },
  {
    "username": "bob",
    "hasFreeUploadSlot": false,
    "uploadSpeed": 100000,
    "queueLength": 12,
    "files": [
      {"filename": "dp\\around the world.FLAC", "size": 40000000}
    ]
  }
]`

func TestParseResponsesArray(t *testing.T) {
	hits, err := ParseResponses([]byte(slskdArray), true)
	if err != nil {
		t.Fatalf("ParseResponses failed: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("Expected 2 FLAC hits, got %d", len(hits))
	}

	first := hits[0]
	if first.Username != "alice" || !first.HasFreeSlot || first.UploadSpeed != 3500000 {
		t.Errorf("Peer fields not copied: %+v", first)
	}
	if first.BitDepth == nil || *first.BitDepth != 16 || first.Length == nil || *first.Length != 429 {
		t.Errorf("File fields not copied: %+v", first)
	}
	if first.BitRate != nil {
		t.Errorf("Absent bitRate should stay nil")
	}

	second := hits[1]
	if second.Username != "bob" || second.QueueLength != 12 || second.Length != nil {
		t.Errorf("Unexpected second hit: %+v", second)
	}
}

func TestParseResponsesAllAudio(t *testing.T) {
	hits, err := ParseResponses([]byte(slskdArray), false)
	if err != nil {
		t.Fatalf("ParseResponses failed: %v", err)
	}
	if len(hits) != 3 {
		t.Errorf("Expected FLAC and MP3 hits without the JPEG, got %d", len(hits))
	}
}

func TestParseResponsesSearchState(t *testing.T) {
	raw := `{"id": "abc", "state": "Completed", "responses": ` + slskdArray + `}`
	hits, err := ParseResponses([]byte(raw), true)
	if err != nil {
		t.Fatalf("ParseResponses failed: %v", err)
	}
	if len(hits) != 2 {
		t.Errorf("Expected 2 hits, got %d", len(hits))
	}
}

func TestParseResponsesEmptyAndInvalid(t *testing.T) {
	hits, err := ParseResponses([]byte(`[]`), true)
	if err != nil || hits == nil || len(hits) != 0 {
		t.Errorf("Expected empty non-nil slice, got %v, %v", hits, err)
	}
	if _, err := ParseResponses([]byte(`not json`), true); err == nil {
		t.Error("Expected error for invalid JSON")
	}
}

func TestParseThenRank(t *testing.T) {
	hits, err := ParseResponses([]byte(slskdArray), true)
	if err != nil {
		t.Fatal(err)
	}
	r := newTestRanker(t)
	ranked := r.Rank(hits, aroundTheWorld, nil)
	if len(ranked) != 1 {
		t.Fatalf("Expected duplicates to collapse into 1 result, got %d", len(ranked))
	}
	if ranked[0].Username != "alice" {
		t.Errorf("Expected alice's copy to win, got %s", ranked[0].Username)
	}
}
