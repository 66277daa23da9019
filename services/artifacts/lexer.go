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
	"regexp"
	"strconv"
	"strings"

	"github.com/AleutianAI/compilerlens/services/anomaly"
)

// Token classes produced by Tokenize. IDENTIFIER and OPERATOR match the
// classes the lexical anomaly pass inspects.
const (
	TokenKeyword    = "Keyword"
	TokenNumber     = "Number"
	TokenString     = "String"
	TokenIdentifier = anomaly.TokenTypeIdentifier
	TokenOperator   = anomaly.TokenTypeOperator
	TokenDelimiter  = "Delimiter"
)

// Language selects the keyword table and the prompt wording.
type Language string

const (
	LangJava   Language = "java"
	LangCPP    Language = "cpp"
	LangPython Language = "python"
)

// ParseLanguage normalizes a client-supplied language name. Unknown or
// empty names map to Java.
func ParseLanguage(s string) Language {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cpp", "c++", "cxx":
		return LangCPP
	case "python", "py":
		return LangPython
	default:
		return LangJava
	}
}

// Label is the human-readable name used in prompts.
func (l Language) Label() string {
	switch l {
	case LangCPP:
		return "C++"
	case LangPython:
		return "Python"
	default:
		return "Java"
	}
}

// tokenPattern alternatives, in priority order: word, quoted string,
// operator run, single delimiter. Anything else (whitespace, #, @, `) is
// skipped.
var tokenPattern = regexp.MustCompile(
	`\b(\w+)\b|(["'](?:\\.|[^"'])*["'])|([+\-*/=!<>&|^%~]+)|([(){}\[\];,.])`,
)

// Tokenize splits source code into classified tokens with 1-based line and
// column positions.
//
// # Description
//
// This is a regex scanner, not a language lexer: multi-character operator
// runs such as "+=" or "=-" come out as one OPERATOR token, comments are
// tokenized like code, and a word is a Number when it parses as an integer
// literal (decimal, 0x, 0o or 0b).
//
// # Inputs
//
//   - code: Source text.
//   - lang: Chooses the keyword table.
//
// # Outputs
//
//   - []anomaly.Token: Tokens in source order. Never nil.
func Tokenize(code string, lang Language) []anomaly.Token {
	keywords := keywordsFor(lang)
	tokens := make([]anomaly.Token, 0)

	line, col, pos := 1, 1, 0
	advance := func(to int) {
		for _, r := range code[pos:to] {
			if r == '\n' {
				line++
				col = 1
			} else {
				col++
			}
		}
		pos = to
	}

	for _, m := range tokenPattern.FindAllStringSubmatchIndex(code, -1) {
		advance(m[0])
		value := code[m[0]:m[1]]

		var typ string
		switch {
		case m[2] >= 0:
			switch {
			case keywords[value]:
				typ = TokenKeyword
			case isNumber(value):
				typ = TokenNumber
			default:
				typ = TokenIdentifier
			}
		case m[4] >= 0:
			typ = TokenString
		case m[6] >= 0:
			typ = TokenOperator
		default:
			typ = TokenDelimiter
		}

		tokens = append(tokens, anomaly.Token{Type: typ, Value: value, Line: line, Column: col})
	}
	return tokens
}

func isNumber(word string) bool {
	if _, err := strconv.ParseInt(word, 0, 64); err == nil {
		return true
	}
	for _, r := range word {
		if r < '0' || r > '9' {
			return false
		}
	}
	return word != ""
}

func keywordsFor(lang Language) map[string]bool {
	switch lang {
	case LangCPP:
		return cppKeywords
	case LangPython:
		return pythonKeywords
	default:
		return javaKeywords
	}
}

func wordSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

var javaKeywords = wordSet(
	"abstract", "assert", "boolean", "break", "byte", "case", "catch", "char", "class", "const",
	"continue", "default", "do", "double", "else", "enum", "extends", "final", "finally", "float",
	"for", "goto", "if", "implements", "import", "instanceof", "int", "interface", "long", "native",
	"new", "null", "package", "private", "protected", "public", "return", "short", "static",
	"strictfp", "super", "switch", "synchronized", "this", "throw", "throws", "transient", "try",
	"void", "volatile", "while", "var", "record", "true", "false",
	"java", "util", "String", "System", "out", "println", "Math", "Integer", "List", "Map",
)

var cppKeywords = wordSet(
	"alignas", "alignof", "auto", "bool", "break", "case", "catch", "char", "class", "const",
	"constexpr", "const_cast", "continue", "decltype", "default", "delete", "do", "double",
	"dynamic_cast", "else", "enum", "explicit", "extern", "false", "float", "for", "friend", "goto",
	"if", "inline", "int", "long", "mutable", "namespace", "new", "noexcept", "nullptr", "operator",
	"private", "protected", "public", "register", "reinterpret_cast", "return", "short", "signed",
	"sizeof", "static", "static_assert", "static_cast", "struct", "switch", "template", "this",
	"throw", "true", "try", "typedef", "typeid", "typename", "union", "unsigned", "using",
	"virtual", "void", "volatile", "while",
	"include", "std", "cout", "cin", "endl", "vector", "string", "map",
)

var pythonKeywords = wordSet(
	"False", "None", "True", "and", "as", "assert", "async", "await", "break", "class", "continue",
	"def", "del", "elif", "else", "except", "finally", "for", "from", "global", "if", "import",
	"in", "is", "lambda", "nonlocal", "not", "or", "pass", "raise", "return", "try", "while",
	"with", "yield", "match", "case",
	"sys", "os", "math", "random", "time", "json", "re", "collections", "itertools", "functools",
	"open", "print", "input", "len", "range", "map", "filter", "zip", "sorted", "enumerate", "sum",
	"min", "max", "round", "type", "int", "float", "complex", "list", "tuple", "set", "dict",
	"str", "bytes", "bool", "object", "super", "self",
)
