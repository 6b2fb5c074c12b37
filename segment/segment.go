// Package segment holds the transcript data model shared by the player,
// the history store, and the inference layer.
package segment

// Segment is one time-bounded slice of a transcript. Segments are
// immutable once produced by analysis; IDs are unique and ascending in
// order of appearance.
type Segment struct {
	ID            int     `json:"id"`
	Start         float64 `json:"start"`
	End           float64 `json:"end"`
	Text          string  `json:"text"`
	Translation   string  `json:"translation"`
	NativeRewrite string  `json:"nativeRewrite"`
	RewriteReason string  `json:"rewriteReason"`
}

// Metadata describes a whole analysis: CEFR difficulty level (A1..C2),
// estimated words per minute, word count, and audio duration in seconds.
type Metadata struct {
	CEFR      string  `json:"cefr"`
	WPM       float64 `json:"wpm"`
	WordCount int     `json:"wordCount"`
	Duration  float64 `json:"duration"`
}

// Analysis is the full result of analyzing one recording.
type Analysis struct {
	Metadata Metadata  `json:"metadata"`
	Segments []Segment `json:"segments"`
}

// HistoryItem is one persisted past analysis, keyed by a time-based id.
type HistoryItem struct {
	ID       string   `json:"id"`
	Filename string   `json:"filename"`
	Date     string   `json:"date"`
	Analysis Analysis `json:"analysis"`
}

// WordDefinition is the result of a dictionary lookup for a word in
// context.
type WordDefinition struct {
	Word       string `json:"word"`
	Phonetic   string `json:"phonetic"`
	Definition string `json:"definition"`
	Example    string `json:"example"`
}

// Ratings a pronunciation score may carry.
const (
	RatingGood    = "Good"
	RatingAverage = "Average"
	RatingPoor    = "Poor"
)

// GoodScoreThreshold separates the "good" presentation band from the
// rest. Scores strictly above it count as good.
const GoodScoreThreshold = 80

// PronunciationScore is the outcome of scoring a shadowing attempt.
type PronunciationScore struct {
	Score    int    `json:"score"`
	Rating   string `json:"rating"`
	Feedback string `json:"feedback"`
}

// IsGood reports whether the score falls in the good presentation band.
func (p PronunciationScore) IsGood() bool {
	return p.Score > GoodScoreThreshold
}

// ActiveAt returns the first segment in declaration order satisfying
// start <= t < end, or false when no segment covers t. Source segments
// may overlap; the earliest declared match wins. The scan is linear on
// purpose: lists are tens to low hundreds of segments and the order of
// declaration is part of the contract.
func ActiveAt(segments []Segment, t float64) (Segment, bool) {
	for _, s := range segments {
		if t >= s.Start && t < s.End {
			return s, true
		}
	}
	return Segment{}, false
}

// ActiveIndexAt is ActiveAt returning the slice index instead of the
// segment, -1 when nothing matches. The TUI uses it for scroll targeting.
func ActiveIndexAt(segments []Segment, t float64) int {
	for i, s := range segments {
		if t >= s.Start && t < s.End {
			return i
		}
	}
	return -1
}
