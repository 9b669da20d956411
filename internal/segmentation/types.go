package segmentation

// SilenceInterval is one quiet stretch found by the detector. Positions are
// milliseconds from the start of the track.
type SilenceInterval struct {
	StartMs  int64
	EndMs    int64
	LengthMs int64
}

// Midpoint returns the center of the interval, the position used as a cut
// candidate.
func (s SilenceInterval) Midpoint() int64 {
	return (s.StartMs + s.EndMs) / 2
}

// PauseClass tags a silence interval by its likely role in speech.
type PauseClass int

const (
	// WithinSentence marks a short breath or hesitation inside a sentence.
	WithinSentence PauseClass = iota
	// SentenceBoundary marks a pause long enough to separate sentences.
	SentenceBoundary
)

func (c PauseClass) String() string {
	if c == SentenceBoundary {
		return "sentence-boundary"
	}
	return "within-sentence"
}

// ClassifiedPause is a silence interval with its assigned class.
type ClassifiedPause struct {
	SilenceInterval
	Class PauseClass
}

// Chunk is one materialized slice of the source audio, ready for dispatch.
// Ownership passes to the dispatcher, which removes the file when done.
type Chunk struct {
	Index           int
	StartOffsetMs   int64
	NominalLengthMs int64
	FilePath        string
}

// Options carries the segmentation tuning knobs. All durations are
// milliseconds.
type Options struct {
	MinSilenceLenMs    int64
	SilenceThresholdDb float64
	MinSegmentLenMs    int64
	MaxSegmentLenMs    int64
	StrictMaxLenMs     int64
	SearchWindowMs     int64
}
