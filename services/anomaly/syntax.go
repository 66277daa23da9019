// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package anomaly

import "fmt"

const (
	// MaxNestingDepth is the deepest tree that is not reported.
	MaxNestingDepth = 10

	// MaxTraversalDepth stops the walk on pathologically deep trees.
	MaxTraversalDepth = 1000

	// MaxTraversalNodes stops the walk on pathologically large trees.
	MaxTraversalNodes = 100_000
)

// treeShape is the result of one bounded walk over a syntax tree.
type treeShape struct {
	maxDepth  int
	typeOrder []string
	typeCount map[string]int

	// truncated is set when a cycle or a traversal limit stopped the walk.
	truncated bool
	reason    string
}

type frame struct {
	node  *ASTNode
	depth int
}

// walkTree visits the tree in pre-order with an explicit stack.
//
// A node reached a second time (shared subtree or cycle) or a walk that
// exceeds MaxTraversalDepth / MaxTraversalNodes marks the shape truncated
// and stops immediately.
func walkTree(root *ASTNode) treeShape {
	shape := treeShape{typeCount: make(map[string]int)}
	if root == nil {
		return shape
	}

	visited := make(map[*ASTNode]struct{})
	stack := []frame{{node: root, depth: 0}}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if _, seen := visited[top.node]; seen {
			shape.truncated = true
			shape.reason = "node reachable more than once (cycle or shared subtree)"
			return shape
		}
		visited[top.node] = struct{}{}

		if top.depth > MaxTraversalDepth {
			shape.truncated = true
			shape.reason = fmt.Sprintf("depth exceeds traversal limit %d", MaxTraversalDepth)
			return shape
		}
		if len(visited) > MaxTraversalNodes {
			shape.truncated = true
			shape.reason = fmt.Sprintf("node count exceeds traversal limit %d", MaxTraversalNodes)
			return shape
		}

		if top.depth > shape.maxDepth {
			shape.maxDepth = top.depth
		}
		if _, ok := shape.typeCount[top.node.Type]; !ok {
			shape.typeOrder = append(shape.typeOrder, top.node.Type)
		}
		shape.typeCount[top.node.Type]++

		// Push in reverse so the leftmost child is visited first.
		for i := len(top.node.Children) - 1; i >= 0; i-- {
			child := top.node.Children[i]
			if child == nil {
				continue
			}
			stack = append(stack, frame{node: child, depth: top.depth + 1})
		}
	}

	return shape
}

// DetectSyntaxAnomalies inspects a syntax tree for deep nesting and
// node types that occur only once.
//
// # Description
//
// Depth counts edges from the root, so a root without children has depth 0.
// A depth above MaxNestingDepth yields one excessive_nesting finding. Every
// node type occurring exactly once yields one single_node_anomaly, in the
// order the type was first met in pre-order.
//
// The walk is iterative and bounded. If it hits a cycle, a shared node or a
// traversal limit, the pass reports a single excessive_nesting finding that
// says the tree was truncated and returns without the singleton analysis.
//
// # Inputs
//
//   - root: Tree root. nil yields no findings.
//
// # Outputs
//
//   - []AnomalyResult: Findings. Never nil.
func DetectSyntaxAnomalies(root *ASTNode) []AnomalyResult {
	anomalies := make([]AnomalyResult, 0)
	if root == nil {
		return anomalies
	}

	shape := walkTree(root)

	if shape.truncated {
		anomalies = append(anomalies, newResult(
			TypeExcessiveNesting, SeverityHigh, 0.75,
			fmt.Sprintf("AST traversal truncated at depth %d: %s", shape.maxDepth, shape.reason),
			"Code nesting is too deep",
			"Refactor into smaller functions",
			"Risk of stack overflow",
		))
		return anomalies
	}

	if shape.maxDepth > MaxNestingDepth {
		anomalies = append(anomalies, newResult(
			TypeExcessiveNesting, SeverityHigh, 0.75,
			fmt.Sprintf("AST depth exceeds threshold: %d > %d", shape.maxDepth, MaxNestingDepth),
			"Code nesting is too deep",
			"Refactor into smaller functions",
			"Risk of stack overflow",
		))
	}

	for _, typ := range shape.typeOrder {
		if shape.typeCount[typ] == 1 {
			anomalies = append(anomalies, newResult(
				TypeSingleNode, SeverityLow, 0.4,
				fmt.Sprintf("Unique/Single occurrence of node type: %s", typ),
				"May indicate incomplete code or edge case",
			))
		}
	}

	return anomalies
}
