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
)

const strictJSON = "Return the output strictly in the following JSON format without any additional text or code blocks:"

func parseTreePrompt(code string, lang Language) string {
	return fmt.Sprintf(`Ensure that the response is always in strict JSON format without unnecessary text or formatting issues. This is top priority. Generate a parse tree for the following %[1]s code and return it in JSON format. If the code is difficult make sure to understand the context and return a simpler parse tree for the program in the JSON format:

%[1]s Code:
%[2]s

%[3]s

{
  "name": "Root",
  "children": [
    { "name": "Child1", "children": [...] },
    { "name": "Child2" }
  ]
}`, lang.Label(), code, strictJSON)
}

func bytecodePrompt(code string, lang Language) string {
	return fmt.Sprintf(`Compile the following %[1]s code into minimal, clean bytecode representation.

%[1]s Code:
%[2]s

Requirements:
- Output ONLY essential bytecode instructions (no comments or explanations)
- Use concise format: LOAD, STORE, CALL, RET, JMP operations
- Jump and call targets are zero-based instruction indices, e.g. "JMP 4"
- Keep each instruction short and readable
- Remove redundant operations
- If there are errors, mention them at the top

%[3]s

{
  "bytecode": ["INSTRUCTION 1", "INSTRUCTION 2"]
}`, lang.Label(), code, strictJSON)
}

func optimizedBytecodePrompt(code string, bytecode []string) string {
	return fmt.Sprintf(`Optimize the following bytecode to reduce redundant operations and improve execution efficiency.

Source Code:
%s

Bytecode:
%s

Requirements:
- Output ONLY optimized bytecode instructions (no explanations)
- Remove redundant LOAD/STORE operations
- Combine operations where possible
- Keep each instruction concise and readable
- Maintain semantic correctness
- If there are errors, mention them at the top

%s

{
  "optimized_bytecode": ["INSTRUCTION 1", "INSTRUCTION 2"]
}`, code, strings.Join(bytecode, "\n"), strictJSON)
}

func intermediateCodePrompt(code string, lang Language) string {
	return fmt.Sprintf(`Convert the following %[1]s code into minimal, clean single-pass intermediate code representation.

%[1]s Code:
%[2]s

Requirements:
- Output ONLY essential intermediate instructions (no comments or explanations)
- Use concise syntax: variable assignments, function calls, control flow
- Keep each line short and readable
- Remove redundant operations
- If there are errors, mention them at the top

%[3]s

{
  "assembly": "Minimal intermediate code here"
}`, lang.Label(), code, strictJSON)
}

func assemblyPrompt(code string, lang Language) string {
	return fmt.Sprintf(`Convert the following %[1]s code into minimal, clean three-pass assembly code representation.

%[1]s Code:
%[2]s

Requirements:
- Output ONLY essential assembly instructions (no comments or explanations)
- Use concise syntax: MOV, PUSH, POP, CALL, RET, JMP operations
- Keep each instruction short and readable
- Remove redundant operations
- Three-pass approach: Pass 1 (labels), Pass 2 (symbols), Pass 3 (code generation)
- If there are errors, mention them at the top

%[3]s

{
  "assembly": "Minimal three-pass assembly code here"
}`, lang.Label(), code, strictJSON)
}
