package srt

// Cue is one subtitle entry. Times are seconds from the start of the track.
type Cue struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}
