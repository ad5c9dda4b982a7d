package config

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// scalar is a raw value together with the line it came from.
type scalar struct {
	val  string
	line int
}

// document is the two-level mapping used by config.yaml: section -> key -> value.
type document map[string]map[string]scalar

// parseYAML parses the flat two-level subset of YAML the config file uses.
// Nested mappings, lists and anchors are not supported.
func parseYAML(r io.Reader) (document, error) {
	scanner := bufio.NewScanner(r)
	doc := document{}
	cur := ""
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		raw := scanner.Text()

		// strip comments
		if i := strings.IndexByte(raw, '#'); i >= 0 {
			raw = raw[:i]
		}

		line := strings.TrimRight(raw, " \t\r\n")
		if strings.TrimSpace(line) == "" {
			continue
		}

		// top-level section? (no leading spaces)
		if line[0] != ' ' && line[0] != '\t' {
			name, ok := strings.CutSuffix(strings.TrimSpace(line), ":")
			if !ok || name == "" {
				return nil, fmt.Errorf("line %d: expected 'section:'", lineNo)
			}
			if _, seen := doc[name]; seen {
				return nil, fmt.Errorf("line %d: duplicate %q section", lineNo, name)
			}
			doc[name] = map[string]scalar{}
			cur = name
			continue
		}

		// expect indented "key: value"
		if cur == "" {
			return nil, fmt.Errorf("line %d: key without a section", lineNo)
		}
		trim := strings.TrimSpace(line)
		colon := strings.IndexByte(trim, ':')
		if colon <= 0 {
			return nil, fmt.Errorf("line %d: expected 'key: value'", lineNo)
		}
		key := strings.TrimSpace(trim[:colon])
		if _, dup := doc[cur][key]; dup {
			return nil, fmt.Errorf("line %d: duplicate key %s.%s", lineNo, cur, key)
		}
		doc[cur][key] = scalar{val: resolveScalar(trim[colon+1:]), line: lineNo}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return doc, nil
}

// resolveScalar trims whitespace and removes surrounding quotes from YAML-like scalars.
//
//	"localhost"   -> localhost
//	'password123' -> password123
//	localhost     -> localhost
func resolveScalar(s string) string {
	s = strings.TrimSpace(s)

	n := len(s)
	if n >= 2 {
		if (s[0] == '"' && s[n-1] == '"') || (s[0] == '\'' && s[n-1] == '\'') {
			if unq, err := strconv.Unquote(s); err == nil {
				return unq
			}
			return s[1 : n-1]
		}
	}
	return s
}
