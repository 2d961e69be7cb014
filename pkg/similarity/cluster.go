package similarity

import (
	"fmt"
	"math"
)

// Cluster groups vectors by greedy single-link clustering.
//
// Vectors are visited in input order. Each unclustered vector seeds a new
// group and absorbs every later unclustered vector whose cosine similarity
// to the seed exceeds threshold. The result is deterministic for a given
// input order, every vector belongs to exactly one group, and a higher
// threshold never produces fewer groups.
//
// Returned groups contain indexes into the input slice.
//
// Returns ErrDimensionMismatch if the vectors are not all the same length.
func Cluster(vectors [][]float64, threshold float64) ([][]int, error) {
	groups := make([][]int, 0)
	assigned := make([]bool, len(vectors))

	for i := range vectors {
		if assigned[i] {
			continue
		}

		group := []int{i}
		assigned[i] = true

		for j := i + 1; j < len(vectors); j++ {
			if assigned[j] {
				continue
			}
			sim, err := CosineSimilarity(vectors[i], vectors[j])
			if err != nil {
				return nil, err
			}
			if sim > threshold {
				group = append(group, j)
				assigned[j] = true
			}
		}

		groups = append(groups, group)
	}

	return groups, nil
}

// NearestNeighbor finds the candidate most similar to the query.
//
// Performs a linear scan over candidates; ties are broken by the first
// occurrence. Returns the winning index and its cosine similarity.
//
// Returns index -1 if candidates is empty. Returns ErrDimensionMismatch if
// any candidate's length differs from the query's.
func NearestNeighbor(query []float64, candidates [][]float64) (int, float64, error) {
	bestIdx := -1
	bestSim := math.Inf(-1)

	for i, c := range candidates {
		sim, err := CosineSimilarity(query, c)
		if err != nil {
			return -1, 0, err
		}
		if sim > bestSim {
			bestIdx = i
			bestSim = sim
		}
	}

	if bestIdx == -1 {
		return -1, 0, nil
	}
	return bestIdx, bestSim, nil
}

// DetectAnomalies returns the indexes of vectors unusually far from the
// centroid of the input set.
//
// A vector is anomalous when its Euclidean distance to the centroid exceeds
// the mean such distance scaled by (1 + sensitivity). Requires at least two
// vectors; smaller inputs return an empty result.
func DetectAnomalies(vectors [][]float64, sensitivity float64) ([]int, error) {
	if len(vectors) < 2 {
		return []int{}, nil
	}

	dim := len(vectors[0])
	centroid := make([]float64, dim)
	for _, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, dim, len(v))
		}
		for i, x := range v {
			centroid[i] += x
		}
	}
	for i := range centroid {
		centroid[i] /= float64(len(vectors))
	}

	distances := make([]float64, len(vectors))
	var meanDistance float64
	for i, v := range vectors {
		d, err := EuclideanDistance(v, centroid)
		if err != nil {
			return nil, err
		}
		distances[i] = d
		meanDistance += d
	}
	meanDistance /= float64(len(vectors))

	cutoff := meanDistance * (1 + sensitivity)
	anomalies := make([]int, 0)
	for i, d := range distances {
		if d > cutoff {
			anomalies = append(anomalies, i)
		}
	}

	return anomalies, nil
}
