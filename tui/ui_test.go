package tui

import (
	"strings"
	"testing"

	"parlo/player"
	"parlo/segment"
)

func testAnalysis() *segment.Analysis {
	return &segment.Analysis{
		Metadata: segment.Metadata{CEFR: "B2", WPM: 150, WordCount: 9, Duration: 6},
		Segments: []segment.Segment{
			{ID: 1, Start: 0, End: 3, Text: "first line", NativeRewrite: "first, natively", Translation: "第一句"},
			{ID: 2, Start: 3, End: 6, Text: "second line", NativeRewrite: "second, natively", Translation: "第二句"},
		},
	}
}

func TestContentViewMarksActiveSegment(t *testing.T) {
	m := initialModel(player.New(), testAnalysis(), "demo.mp3", false)
	m.activeIdx = 1

	content := m.contentView()
	if !strings.Contains(content, "▶ second line") {
		t.Fatalf("active marker missing:\n%s", content)
	}
	if strings.Contains(content, "▶ first line") {
		t.Fatal("inactive segment carries the active marker")
	}
}

func TestContentViewTracksSegmentLines(t *testing.T) {
	m := initialModel(player.New(), testAnalysis(), "demo.mp3", false)
	m.contentView()

	if len(m.lineOfSegment) != 2 {
		t.Fatalf("tracked %d segments, want 2", len(m.lineOfSegment))
	}
	if m.lineOfSegment[0] != 0 || m.lineOfSegment[1] <= m.lineOfSegment[0] {
		t.Fatalf("line offsets = %v, want increasing from 0", m.lineOfSegment)
	}
}

func TestHeaderViewShowsTranscriptOnlyNotice(t *testing.T) {
	m := initialModel(player.New(), testAnalysis(), "demo.mp3", true)
	if !strings.Contains(m.headerView(), "transcript only") {
		t.Fatal("transcript-only notice missing from header")
	}

	m = initialModel(player.New(), testAnalysis(), "demo.mp3", false)
	if strings.Contains(m.headerView(), "transcript only") {
		t.Fatal("transcript-only notice shown for live session")
	}
}
