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

import (
	"errors"
	"fmt"
)

// Sentinel errors for the anomaly engine.
var (
	// ErrMissingArtifacts indicates a required artifact was not supplied.
	ErrMissingArtifacts = errors.New("missing required fields: tokens, ast, bytecode")

	// ErrPassFailed indicates a detection pass aborted unexpectedly.
	ErrPassFailed = errors.New("detection pass failed")
)

// PassError reports which pass aborted and why.
type PassError struct {
	Pass string
	Err  error
}

func (e *PassError) Error() string {
	return fmt.Sprintf("%s pass: %v", e.Pass, e.Err)
}

// Unwrap lets errors.Is match both ErrPassFailed and the cause.
func (e *PassError) Unwrap() []error {
	return []error{ErrPassFailed, e.Err}
}
