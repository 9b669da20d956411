// Package segmentation decides where to cut a long audio track so each piece
// fits the recognizer's bounds without severing mid-sentence.
//
// The stack runs strictly in order: the silence detector finds quiet
// intervals, the boundary classifier separates sentence-boundary pauses from
// within-sentence breaths, the planner walks the timeline picking cut points,
// and the segmenter materializes the planned chunks as WAV artifacts. All of
// it is single-threaded over one read-only buffer; the adaptive thresholds
// depend on seeing the whole track at once.
package segmentation
