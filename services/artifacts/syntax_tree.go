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
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/AleutianAI/compilerlens/services/anomaly"
)

// maxLeafValueBytes caps the source text copied into a leaf's Value.
const maxLeafValueBytes = 64

func grammarFor(lang Language) *sitter.Language {
	switch lang {
	case LangCPP:
		return cpp.GetLanguage()
	case LangPython:
		return python.GetLanguage()
	default:
		return java.GetLanguage()
	}
}

// LocalParseTree parses code with the tree-sitter grammar for lang.
//
// # Description
//
// Only named nodes are kept, so punctuation does not inflate the single-node
// counts of the syntax pass. Leaves carry their source text (truncated) and
// every node its 1-based start line. Syntax errors do not fail the parse;
// they show up as ERROR nodes. The same depth and node limits as
// ConvertTree apply.
//
// # Outputs
//
//   - *anomaly.ASTNode: Root of the converted tree.
//   - error: Parse cancellation, or ErrUnexpectedShape for an oversized tree.
func LocalParseTree(ctx context.Context, code string, lang Language) (*anomaly.ASTNode, error) {
	ctx, span := tracer.Start(ctx, "artifacts.local_parse_tree")
	defer span.End()

	content := []byte(code)
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(grammarFor(lang))

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("parse canceled: %w", err)
	}

	budget := anomaly.MaxTraversalNodes
	return convertSitterNode(tree.RootNode(), content, 0, &budget)
}

func convertSitterNode(n *sitter.Node, content []byte, depth int, budget *int) (*anomaly.ASTNode, error) {
	if depth > anomaly.MaxTraversalDepth {
		return nil, fmt.Errorf("%w: tree deeper than %d", ErrUnexpectedShape, anomaly.MaxTraversalDepth)
	}
	*budget--
	if *budget < 0 {
		return nil, fmt.Errorf("%w: tree larger than %d nodes", ErrUnexpectedShape, anomaly.MaxTraversalNodes)
	}

	node := &anomaly.ASTNode{
		Type:   n.Type(),
		LineNo: int(n.StartPoint().Row) + 1,
	}

	count := int(n.NamedChildCount())
	if count == 0 {
		value := n.Content(content)
		if len(value) > maxLeafValueBytes {
			value = value[:maxLeafValueBytes]
		}
		node.Value = value
		return node, nil
	}

	node.Children = make([]*anomaly.ASTNode, 0, count)
	for i := 0; i < count; i++ {
		child, err := convertSitterNode(n.NamedChild(i), content, depth+1, budget)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, child)
	}
	return node, nil
}
