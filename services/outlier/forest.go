// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package outlier

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Forest parameters.
const (
	DefaultTrees      = 100
	DefaultSampleSize = 256
	DefaultSeed       = 42
)

const eulerGamma = 0.5772156649

// averagePathLength is the mean depth of an unsuccessful search in a binary
// search tree of n points, used to normalise path lengths.
func averagePathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	}
	m := float64(n - 1)
	return 2*(math.Log(m)+eulerGamma) - 2*m/float64(n)
}

// treeNode is one node of an isolation tree. Leaves have Left == -1 and
// record how many training points reached them.
type treeNode struct {
	Split float64 `json:"split"`
	Left  int     `json:"left"`
	Right int     `json:"right"`
	Size  int     `json:"size"`
}

// isoTree stores its nodes flat so a forest round-trips through JSON.
type isoTree struct {
	Nodes []treeNode `json:"nodes"`
}

func (t *isoTree) grow(r *rand.Rand, xs []float64, depth, maxDepth int) int {
	idx := len(t.Nodes)
	t.Nodes = append(t.Nodes, treeNode{Left: -1, Right: -1, Size: len(xs)})
	if depth >= maxDepth || len(xs) <= 1 {
		return idx
	}
	lo, hi := floats.Min(xs), floats.Max(xs)
	if lo == hi {
		return idx
	}

	split := lo + r.Float64()*(hi-lo)
	left := make([]float64, 0, len(xs))
	right := make([]float64, 0, len(xs))
	for _, x := range xs {
		if x < split {
			left = append(left, x)
		} else {
			right = append(right, x)
		}
	}
	l := t.grow(r, left, depth+1, maxDepth)
	rt := t.grow(r, right, depth+1, maxDepth)
	t.Nodes[idx].Split = split
	t.Nodes[idx].Left = l
	t.Nodes[idx].Right = rt
	return idx
}

func (t *isoTree) pathLength(x float64) float64 {
	i, depth := 0, 0
	for t.Nodes[i].Left >= 0 {
		if x < t.Nodes[i].Split {
			i = t.Nodes[i].Left
		} else {
			i = t.Nodes[i].Right
		}
		depth++
	}
	return float64(depth) + averagePathLength(t.Nodes[i].Size)
}

// Forest is a one-dimensional isolation forest.
//
// # Description
//
// Each tree is grown on a subsample drawn without replacement, splitting at
// a uniform point between the subsample's minimum and maximum until a point
// is isolated or the depth limit ceil(log2(SampleSize)) is reached. A
// point's score is 2^(-E[h(x)]/c(SampleSize)): close to 1 for points that
// isolate quickly, around 0.5 or below for ordinary points.
type Forest struct {
	Trees      []isoTree `json:"trees"`
	SampleSize int       `json:"sample_size"`
}

// GrowForest fits a forest of n trees to xs with a fixed seed, so equal
// inputs give equal forests.
func GrowForest(xs []float64, n int, seed uint64) Forest {
	r := rand.New(rand.NewPCG(seed, seed))
	psi := min(DefaultSampleSize, len(xs))
	maxDepth := int(math.Ceil(math.Log2(float64(max(psi, 2)))))

	f := Forest{Trees: make([]isoTree, n), SampleSize: psi}
	sample := make([]float64, psi)
	for i := range f.Trees {
		for j, k := range r.Perm(len(xs))[:psi] {
			sample[j] = xs[k]
		}
		f.Trees[i].grow(r, sample, 0, maxDepth)
	}
	return f
}

// Score returns the anomaly score of x in [0, 1].
func (f *Forest) Score(x float64) float64 {
	if len(f.Trees) == 0 {
		return 0
	}
	depths := make([]float64, len(f.Trees))
	for i := range f.Trees {
		depths[i] = f.Trees[i].pathLength(x)
	}
	norm := averagePathLength(f.SampleSize)
	if norm == 0 {
		return 0.5
	}
	return math.Pow(2, -stat.Mean(depths, nil)/norm)
}
