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
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrNoJSON means the model reply contained no JSON object.
	ErrNoJSON = errors.New("no JSON object found in model response")

	// ErrInvalidJSON means the extracted object did not parse.
	ErrInvalidJSON = errors.New("model response is not valid JSON")

	// ErrUnexpectedShape means the JSON parsed but lacks the expected field.
	ErrUnexpectedShape = errors.New("model response has unexpected shape")
)

var fencePattern = regexp.MustCompile("(?i)```(?:json)?")

// ExtractJSON pulls the outermost JSON object out of a model reply.
//
// Code fences are removed first; the object is the span from the first
// '{' to the last '}'. Returns ErrNoJSON or ErrInvalidJSON (wrapped).
func ExtractJSON(text string) (map[string]any, error) {
	cleaned := strings.TrimSpace(fencePattern.ReplaceAllString(text, ""))

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end <= start {
		return nil, ErrNoJSON
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return obj, nil
}

// firstString returns the first key whose value is a non-empty string.
func firstString(obj map[string]any, keys ...string) (string, bool) {
	for _, k := range keys {
		if s, ok := obj[k].(string); ok && strings.TrimSpace(s) != "" {
			return s, true
		}
	}
	return "", false
}

// textArtifact reads a free-form text answer: the first of keys that holds
// a string, otherwise the whole object pretty-printed.
func textArtifact(obj map[string]any, keys ...string) string {
	if s, ok := firstString(obj, keys...); ok {
		return s
	}
	pretty, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		return fmt.Sprint(obj)
	}
	return string(pretty)
}

// instructionList reads an instruction listing stored under key as either a
// JSON array or a newline-separated string. Blank lines are dropped.
func instructionList(obj map[string]any, keys ...string) ([]string, error) {
	for _, k := range keys {
		switch v := obj[k].(type) {
		case string:
			return splitLines(v), nil
		case []any:
			out := make([]string, 0, len(v))
			for _, item := range v {
				s := strings.TrimSpace(fmt.Sprint(item))
				if s != "" {
					out = append(out, s)
				}
			}
			return out, nil
		}
	}
	return nil, fmt.Errorf("%w: none of %v present", ErrUnexpectedShape, keys)
}

func splitLines(s string) []string {
	out := make([]string, 0)
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
