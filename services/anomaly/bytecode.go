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
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	mnemonicJump   = "JMP"
	mnemonicCall   = "CALL"
	mnemonicReturn = "RET"
)

// jumpTargetPattern captures the numeric operand of JMP/CALL style
// mnemonics, including suffixed forms such as JMPZ.
var jumpTargetPattern = regexp.MustCompile(`(?:JMP|CALL)[A-Z]*\s+(\d+)`)

// ExtractJumpTarget returns the numeric target of a jump or call
// instruction, or false when the instruction carries none.
func ExtractJumpTarget(instruction string) (int, bool) {
	m := jumpTargetPattern.FindStringSubmatch(instruction)
	if m == nil {
		return 0, false
	}
	target, err := strconv.Atoi(m[1])
	if err != nil {
		// Out of int range.
		return 0, false
	}
	return target, true
}

// DetectBytecodeAnomalies scans a flat instruction list for unreachable
// code and backward jumps.
//
// # Description
//
// Unreachable code: after the last instruction containing RET, the first
// index that no JMP/CALL targets is reported, and only that one.
//
// Infinite loops: every instruction containing JMP whose target is its own
// index or an earlier one is reported, including the final instruction.
//
// # Inputs
//
//   - bytecode: Instructions in program order. May be empty.
//
// # Outputs
//
//   - []AnomalyResult: The unreachable finding (if any) followed by loop
//     findings in index order. Never nil.
func DetectBytecodeAnomalies(bytecode []string) []AnomalyResult {
	anomalies := make([]AnomalyResult, 0)
	targets := make(map[int]struct{})
	unreachableStart := -1

	for i, instr := range bytecode {
		if strings.Contains(instr, mnemonicJump) || strings.Contains(instr, mnemonicCall) {
			if target, ok := ExtractJumpTarget(instr); ok {
				targets[target] = struct{}{}
			}
		}
		if strings.Contains(instr, mnemonicReturn) {
			unreachableStart = i + 1
		}
	}

	if unreachableStart != -1 {
		for i := unreachableStart; i < len(bytecode); i++ {
			if _, targeted := targets[i]; targeted {
				continue
			}
			anomalies = append(anomalies, newResult(
				TypeUnreachableCode, SeverityHigh, 0.7,
				fmt.Sprintf("Unreachable bytecode instruction at line %d: %s", i, bytecode[i]),
				"Remove unreachable code",
				"Check control flow logic",
			))
			break
		}
	}

	for i, instr := range bytecode {
		if !strings.Contains(instr, mnemonicJump) {
			continue
		}
		target, ok := ExtractJumpTarget(instr)
		if !ok || target > i {
			continue
		}
		anomalies = append(anomalies, newResult(
			TypePotentialInfiniteLoop, SeverityCritical, 0.85,
			fmt.Sprintf("Backward jump detected at line %d - potential infinite loop", i),
			"Check loop termination condition",
			"Verify loop counter increment",
		))
	}

	return anomalies
}
