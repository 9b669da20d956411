package segmentation

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
	"gonum.org/v1/gonum/stat"

	"stitcher/internal/logging"
)

const (
	// clusterSampleMin is the minimum pause count for clustering to be
	// meaningful; below it the quantile strategy is used directly.
	clusterSampleMin = 20
	// collapseDistanceMs: when the two lowest 3-cluster centers sit closer
	// than this, the data only supports two groups and a fresh 2-cluster
	// run replaces the 3-cluster result.
	collapseDistanceMs = 100
	// DefaultGlobalMinThresholdMs floors the boundary threshold so noisy
	// recordings cannot classify every breath as a sentence boundary.
	DefaultGlobalMinThresholdMs = 600
)

// BoundaryThresholdStrategy computes the pause length above which a silence
// counts as a sentence boundary.
type BoundaryThresholdStrategy interface {
	Name() string
	Threshold(lengthsMs []float64) (float64, error)
}

// ClusterBased derives the threshold from 1-D k-means over pause lengths.
type ClusterBased struct {
	GlobalMinMs float64
}

func (ClusterBased) Name() string { return "cluster" }

// Threshold clusters the lengths into three groups, collapsing to two when
// the lowest centers are indistinguishable, and anchors the threshold below
// the largest center. Zero-variance input is rejected so the caller can fall
// back to quantiles.
func (s ClusterBased) Threshold(lengthsMs []float64) (float64, error) {
	if len(lengthsMs) < clusterSampleMin {
		return 0, fmt.Errorf("cluster threshold: need %d samples, have %d", clusterSampleMin, len(lengthsMs))
	}
	if !hasVariance(lengthsMs) {
		return 0, errors.New("cluster threshold: zero variance input")
	}

	centers, err := clusterCenters(lengthsMs, 3)
	if err != nil {
		return 0, fmt.Errorf("cluster threshold: %w", err)
	}
	if len(centers) >= 3 && centers[1]-centers[0] < collapseDistanceMs {
		// Two real groups at most; rerun clustering instead of merging
		// the stale 3-cluster centers.
		centers, err = clusterCenters(lengthsMs, 2)
		if err != nil {
			return 0, fmt.Errorf("cluster threshold: %w", err)
		}
	}
	if len(centers) < 2 {
		return 0, errors.New("cluster threshold: degenerate clustering")
	}

	largest := centers[len(centers)-1]
	return maxFloat(0.7*largest, 0.8*s.GlobalMinMs), nil
}

// clusterCenters runs a fresh k-means partition and returns the sorted
// centers of the non-empty clusters.
func clusterCenters(lengthsMs []float64, k int) ([]float64, error) {
	observations := make(clusters.Observations, 0, len(lengthsMs))
	for _, length := range lengthsMs {
		observations = append(observations, clusters.Coordinates{length})
	}

	km := kmeans.New()
	partitioned, err := km.Partition(observations, k)
	if err != nil {
		return nil, err
	}

	centers := make([]float64, 0, len(partitioned))
	for _, cluster := range partitioned {
		if len(cluster.Observations) == 0 {
			continue
		}
		centers = append(centers, cluster.Center[0])
	}
	sort.Float64s(centers)
	return centers, nil
}

// QuantileBased derives the threshold from the raw length distribution.
type QuantileBased struct {
	GlobalMinMs float64
}

func (QuantileBased) Name() string { return "quantile" }

func (s QuantileBased) Threshold(lengthsMs []float64) (float64, error) {
	if len(lengthsMs) == 0 {
		return 0.8 * s.GlobalMinMs, nil
	}
	sorted := make([]float64, len(lengthsMs))
	copy(sorted, lengthsMs)
	sort.Float64s(sorted)

	median := stat.Quantile(0.5, stat.Empirical, sorted, nil)
	p75 := stat.Quantile(0.75, stat.Empirical, sorted, nil)
	return maxFloat((p75+median)/2, 0.8*s.GlobalMinMs), nil
}

// BoundaryClassifier tags pauses as sentence boundaries or within-sentence
// breaths using an adaptive threshold over the pause length distribution.
type BoundaryClassifier struct {
	globalMinMs float64
	logger      *slog.Logger
}

// NewBoundaryClassifier builds a classifier. globalMinMs floors the boundary
// threshold; pass 0 for the default.
func NewBoundaryClassifier(globalMinMs float64, logger *slog.Logger) *BoundaryClassifier {
	if globalMinMs <= 0 {
		globalMinMs = DefaultGlobalMinThresholdMs
	}
	return &BoundaryClassifier{
		globalMinMs: globalMinMs,
		logger:      logging.NewComponentLogger(logger, "boundary-classifier"),
	}
}

// Classify computes the threshold and tags every interval. A pause is a
// sentence boundary iff its length is at least the threshold.
func (c *BoundaryClassifier) Classify(intervals []SilenceInterval) []ClassifiedPause {
	lengths := make([]float64, len(intervals))
	for i, interval := range intervals {
		lengths[i] = float64(interval.LengthMs)
	}

	threshold, strategy := c.threshold(lengths)
	c.logger.Debug("boundary threshold computed",
		logging.Float64("threshold_ms", threshold),
		logging.String("strategy", strategy),
		logging.Int("pauses", len(intervals)))

	pauses := make([]ClassifiedPause, len(intervals))
	for i, interval := range intervals {
		class := WithinSentence
		if float64(interval.LengthMs) >= threshold {
			class = SentenceBoundary
		}
		pauses[i] = ClassifiedPause{SilenceInterval: interval, Class: class}
	}
	return pauses
}

func (c *BoundaryClassifier) threshold(lengths []float64) (float64, string) {
	if len(lengths) >= clusterSampleMin {
		strategy := ClusterBased{GlobalMinMs: c.globalMinMs}
		if threshold, err := strategy.Threshold(lengths); err == nil {
			return threshold, strategy.Name()
		} else {
			c.logger.Debug("clustering unavailable, using quantile fallback", logging.Error(err))
		}
	}
	fallback := QuantileBased{GlobalMinMs: c.globalMinMs}
	threshold, _ := fallback.Threshold(lengths)
	return threshold, fallback.Name()
}

func hasVariance(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return true
		}
	}
	return false
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
