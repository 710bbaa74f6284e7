package tool

import (
	"bufio"
	"bytes"
	"encoding/json"
	"sort"
	"strings"
)

// ParseModelList extracts model identifiers from the tool's listing output.
// Structured JSON is preferred; anything else falls back to taking the first
// field of each meaningful line. Order is preserved and duplicates dropped.
func ParseModelList(out []byte) []string {
	out = bytes.TrimSpace(out)
	if len(out) == 0 {
		return nil
	}
	if ids, ok := parseJSON(out); ok {
		return dedupe(ids)
	}
	return dedupe(parseText(out))
}

func parseJSON(b []byte) ([]string, bool) {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, false
	}
	switch v.(type) {
	case []any, map[string]any:
		return fromValue(v), true
	}
	return nil, false
}

var idKeys = []string{"id", "name", "model", "model_id", "repo_id"}

func fromValue(v any) []string {
	switch x := v.(type) {
	case []any:
		var ids []string
		for _, e := range x {
			switch el := e.(type) {
			case string:
				ids = append(ids, el)
			case map[string]any:
				if id := idOf(el); id != "" {
					ids = append(ids, id)
				}
			}
		}
		return ids
	case map[string]any:
		for _, k := range []string{"models", "data", "items", "results"} {
			if inner, ok := x[k]; ok {
				return fromValue(inner)
			}
		}
		// object keyed by identifier
		var ids []string
		for k, inner := range x {
			if _, ok := inner.(map[string]any); ok {
				ids = append(ids, k)
			}
		}
		sort.Strings(ids)
		return ids
	}
	return nil
}

func idOf(m map[string]any) string {
	for _, k := range idKeys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func parseText(b []byte) []string {
	var ids []string
	s := bufio.NewScanner(bytes.NewReader(b))
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		f := strings.Fields(line)[0]
		f = strings.Trim(f, "\"',[]")
		if f == "" || isSeparator(f) || isHeader(f) {
			continue
		}
		ids = append(ids, f)
	}
	return ids
}

func isSeparator(s string) bool {
	return strings.Trim(s, "-=+|*") == ""
}

func isHeader(s string) bool {
	switch strings.ToUpper(strings.TrimSuffix(s, ":")) {
	case "NAME", "ID", "MODEL", "MODELS", "AVAILABLE":
		return true
	}
	return false
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
