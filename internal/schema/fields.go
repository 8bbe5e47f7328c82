package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/naka-gawa/repo-health/internal/domain"
)

var (
	improvingWords = map[string]bool{"up": true, "improving": true, "improved": true, "rising": true, "increasing": true, "positive": true, "better": true}
	decliningWords = map[string]bool{"down": true, "declining": true, "declined": true, "falling": true, "decreasing": true, "negative": true, "worse": true}
	stableWords    = map[string]bool{"flat": true, "stable": true, "steady": true, "unchanged": true, "neutral": true}
)

// parseTrend accepts a label ("up", "declining"), a signed delta (-3, "+2.5") or null.
func parseTrend(raw json.RawMessage) (domain.Trend, error) {
	if raw == nil || isNull(raw) {
		return domain.Trend{}, nil
	}
	if n, ok := asNumber(raw); ok {
		return domain.Trend{Raw: n.Raw, Direction: directionOf(n.Value)}, nil
	}
	var s string
	if err := decode(raw, &s); err != nil {
		return domain.Trend{}, errors.New("must be a string or a number")
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return domain.Trend{}, nil
	}
	label := strings.ToLower(s)
	switch {
	case improvingWords[label] || label == "↑":
		return domain.Trend{Raw: s, Direction: domain.TrendImproving}, nil
	case decliningWords[label] || label == "↓":
		return domain.Trend{Raw: s, Direction: domain.TrendDeclining}, nil
	case stableWords[label] || label == "→":
		return domain.Trend{Raw: s, Direction: domain.TrendStable}, nil
	}
	if n, ok := domain.NewNumber(strings.TrimPrefix(s, "+")); ok {
		return domain.Trend{Raw: s, Direction: directionOf(n.Value)}, nil
	}
	return domain.Trend{Raw: s, Direction: domain.TrendUnknown}, nil
}

func directionOf(v float64) domain.TrendDirection {
	switch {
	case v > 0:
		return domain.TrendImproving
	case v < 0:
		return domain.TrendDeclining
	default:
		return domain.TrendStable
	}
}

// parseStalledActions accepts the list form [{identifier, reason}] and the
// grouped form {category: [numbers]}, which is flattened in document order.
func parseStalledActions(raw json.RawMessage) ([]domain.StalledAction, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return parseGroupedActions(trimmed)
	}
	var items []json.RawMessage
	if err := decode(raw, &items); err != nil {
		return nil, malformed(keyStalledActions, "must be an array of {identifier, reason} records or an object of grouped identifiers")
	}
	actions := make([]domain.StalledAction, 0, len(items))
	for i, item := range items {
		path := fmt.Sprintf("%s[%d]", keyStalledActions, i)
		var rec object
		if err := decode(item, &rec); err != nil {
			return nil, malformed(path, "must be an object")
		}
		key, idRaw, ok := lookup(rec, []string{"identifier", "id", "number"})
		if !ok || isNull(idRaw) {
			return nil, malformed(path+".identifier", "required")
		}
		id, ok := identifier(idRaw)
		if !ok {
			return nil, malformed(path+"."+key, "must be a string or a number")
		}
		var reason string
		if r, ok := rec["reason"]; !ok || isNull(r) {
			return nil, malformed(path+".reason", "required")
		} else if err := decode(r, &reason); err != nil {
			return nil, malformed(path+".reason", "must be a string")
		}
		actions = append(actions, domain.StalledAction{Identifier: id, Reason: reason})
	}
	return actions, nil
}

func parseGroupedActions(raw json.RawMessage) ([]domain.StalledAction, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if _, err := dec.Token(); err != nil {
		return nil, malformed(keyStalledActions, "must be an object")
	}
	actions := []domain.StalledAction{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, malformed(keyStalledActions, "must be an object")
		}
		category, _ := tok.(string)
		var ids []json.RawMessage
		if err := dec.Decode(&ids); err != nil {
			return nil, malformed(keyStalledActions+"."+category, "must be an array of identifiers")
		}
		reason := strings.ReplaceAll(category, "_", " ")
		for i, idRaw := range ids {
			id, ok := identifier(idRaw)
			if !ok {
				return nil, malformed(fmt.Sprintf("%s.%s[%d]", keyStalledActions, category, i), "must be a string or a number")
			}
			actions = append(actions, domain.StalledAction{Identifier: id, Reason: reason})
		}
	}
	return actions, nil
}

// identifier renders numeric ids as "#N" and keeps string ids as given.
func identifier(raw json.RawMessage) (string, bool) {
	if n, ok := asNumber(raw); ok {
		return "#" + n.Raw, true
	}
	var s string
	if err := decode(raw, &s); err != nil || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}
