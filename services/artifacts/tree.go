// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package artifacts

import (
	"fmt"
	"strings"

	"github.com/AleutianAI/compilerlens/services/anomaly"
)

// UnknownNodeType labels nodes that carry neither "type" nor "name".
const UnknownNodeType = "Unknown"

// treeWrapperKeys are envelopes models sometimes put around the root.
var treeWrapperKeys = []string{"parse_tree", "parseTree", "ast", "tree", "root"}

// ConvertTree turns a decoded JSON tree into an ASTNode.
//
// # Description
//
// Node labels come from "type", falling back to "name". "value" is kept
// when it is a scalar. Non-object children are skipped. A single wrapper
// object such as {"ast": {...}} is unwrapped. Conversion stops with an
// error beyond anomaly.MaxTraversalDepth levels or anomaly.MaxTraversalNodes
// nodes, so the result is always within the syntax pass limits.
//
// # Outputs
//
//   - *anomaly.ASTNode: The converted root.
//   - error: ErrUnexpectedShape (wrapped) for an empty or oversized tree.
func ConvertTree(obj map[string]any) (*anomaly.ASTNode, error) {
	if len(obj) == 0 {
		return nil, fmt.Errorf("%w: empty tree", ErrUnexpectedShape)
	}
	if _, hasLabel := label(obj); !hasLabel {
		for _, k := range treeWrapperKeys {
			if inner, ok := obj[k].(map[string]any); ok {
				obj = inner
				break
			}
		}
	}

	budget := anomaly.MaxTraversalNodes
	return convertNode(obj, 0, &budget)
}

func convertNode(obj map[string]any, depth int, budget *int) (*anomaly.ASTNode, error) {
	if depth > anomaly.MaxTraversalDepth {
		return nil, fmt.Errorf("%w: tree deeper than %d", ErrUnexpectedShape, anomaly.MaxTraversalDepth)
	}
	*budget--
	if *budget < 0 {
		return nil, fmt.Errorf("%w: tree larger than %d nodes", ErrUnexpectedShape, anomaly.MaxTraversalNodes)
	}

	typ, ok := label(obj)
	if !ok {
		typ = UnknownNodeType
	}
	node := &anomaly.ASTNode{Type: typ}

	switch v := obj["value"].(type) {
	case string:
		node.Value = v
	case float64, bool:
		node.Value = fmt.Sprint(v)
	}
	if ln, ok := obj["lineNo"].(float64); ok {
		node.LineNo = int(ln)
	}

	children, _ := obj["children"].([]any)
	for _, c := range children {
		childObj, ok := c.(map[string]any)
		if !ok {
			continue
		}
		child, err := convertNode(childObj, depth+1, budget)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, child)
	}
	return node, nil
}

func label(obj map[string]any) (string, bool) {
	for _, k := range []string{"type", "name"} {
		if s, ok := obj[k].(string); ok && strings.TrimSpace(s) != "" {
			return s, true
		}
	}
	return "", false
}
