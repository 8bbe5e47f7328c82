// Package schema validates raw report payloads and turns them into typed domain reports.
package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/naka-gawa/repo-health/internal/domain"
)

// Top-level keys every report must carry.
const (
	keyMetrics        = "metrics"
	keyBacklog        = "backlog_snapshot"
	keyRiskFlags      = "risk_flags"
	keyStalledActions = "stalled_actions"
)

// lensAliases maps each lens to the metric keys upstream collectors use for it.
var lensAliases = map[domain.Lens][]string{
	domain.LensExecution: {"execution_systems", "execution", "execution_score"},
	domain.LensCommunity: {"community_sustainability", "community", "community_score"},
	domain.LensStrategy:  {"strategy_value", "strategy", "strategy_score"},
}

var (
	backlogAliases = []string{"backlog", "backlog_score"}
	overallAliases = []string{"overall", "overall_score"}
)

type object map[string]json.RawMessage

type options struct {
	requireBacklogScore bool
}

// Option adjusts how strictly Parse validates.
type Option func(*options)

// RequireBacklogScore rejects reports whose metrics carry no backlog score.
// Without it a missing backlog score is accepted and left unset.
func RequireBacklogScore() Option {
	return func(o *options) { o.requireBacklogScore = true }
}

// Parse validates a JSON report payload. It returns *domain.MalformedReportError
// naming the first missing or invalid field.
func Parse(raw []byte, opts ...Option) (*domain.Report, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	var top object
	if err := decode(raw, &top); err != nil {
		return nil, malformed("$", "must be a JSON object")
	}
	for _, key := range []string{keyMetrics, keyBacklog, keyRiskFlags, keyStalledActions} {
		if v, ok := top[key]; !ok || isNull(v) {
			return nil, malformed(key, "required")
		}
	}

	report := &domain.Report{}
	if v, ok := top["report_generated_at"]; ok && !isNull(v) {
		if err := decode(v, &report.GeneratedAt); err != nil {
			return nil, malformed("report_generated_at", "must be a string")
		}
	}

	metrics, err := parseMetrics(top, o)
	if err != nil {
		return nil, err
	}
	report.Metrics = metrics

	if report.BacklogSnapshot, err = parseBacklog(top[keyBacklog]); err != nil {
		return nil, err
	}
	if report.RiskFlags, err = parseRiskFlags(top[keyRiskFlags]); err != nil {
		return nil, err
	}
	if report.StalledActions, err = parseStalledActions(top[keyStalledActions]); err != nil {
		return nil, err
	}
	return report, nil
}

func parseMetrics(top object, o options) (domain.Metrics, error) {
	var m object
	if err := decode(top[keyMetrics], &m); err != nil {
		return domain.Metrics{}, malformed(keyMetrics, "must be an object")
	}
	// Scorer output nests the scores as metrics.score.{sub_scores,overall_score}.
	// Each level is lifted without overriding keys already set above it.
	// A scalar metrics.score is not a nesting level and is left alone.
	for _, nest := range []struct {
		key    string
		scalar bool
	}{
		{"score", true},
		{"sub_scores", false},
	} {
		nested, ok := m[nest.key]
		if !ok || isNull(nested) {
			continue
		}
		var sub object
		if err := decode(nested, &sub); err != nil {
			if nest.scalar {
				continue
			}
			return domain.Metrics{}, malformed("metrics."+nest.key, "must be an object")
		}
		for k, v := range sub {
			if _, exists := m[k]; !exists {
				m[k] = v
			}
		}
	}
	trends, err := trendTable(top, m)
	if err != nil {
		return domain.Metrics{}, err
	}

	var out domain.Metrics
	for _, lens := range domain.LensPriority {
		score, err := parseScore(m, lensAliases[lens], trends)
		if err != nil {
			return domain.Metrics{}, err
		}
		switch lens {
		case domain.LensExecution:
			out.Execution = score
		case domain.LensCommunity:
			out.Community = score
		case domain.LensStrategy:
			out.Strategy = score
		}
	}
	// The backlog score is optional unless required; the snapshot carries the backlog figures.
	if _, v, ok := lookup(m, backlogAliases); ok && !isNull(v) {
		if out.Backlog, err = parseScore(m, backlogAliases, trends); err != nil {
			return domain.Metrics{}, err
		}
	} else if o.requireBacklogScore {
		return domain.Metrics{}, malformed("metrics.backlog", "required numeric score")
	}

	if key, v, ok := lookup(m, overallAliases); ok && !isNull(v) {
		n, ok := asNumber(v)
		if !ok {
			return domain.Metrics{}, malformed("metrics."+key, "must be numeric")
		}
		out.Overall = domain.Some(n)
	}
	return out, nil
}

// trendTable collects trends reported beside the scores rather than inside them.
func trendTable(top, metrics object) (object, error) {
	table := object{}
	for _, src := range []struct {
		path string
		raw  json.RawMessage
	}{{"trends", top["trends"]}, {"metrics.trends", metrics["trends"]}} {
		if src.raw == nil || isNull(src.raw) {
			continue
		}
		var t object
		if err := decode(src.raw, &t); err != nil {
			return nil, malformed(src.path, "must be an object")
		}
		for k, v := range t {
			table[k] = v
		}
	}
	return table, nil
}

func parseScore(m object, aliases []string, trends object) (domain.Score, error) {
	key, v, ok := lookup(m, aliases)
	if !ok || isNull(v) {
		return domain.Score{}, malformed("metrics."+aliases[0], "required numeric score")
	}
	path := "metrics." + key

	var score domain.Score
	var trendRaw json.RawMessage
	if n, ok := asNumber(v); ok {
		score.Value = n
	} else {
		var entry object
		if err := decode(v, &entry); err != nil {
			return domain.Score{}, malformed(path, "must be a number or an object with a numeric score")
		}
		sv, ok := entry["score"]
		if !ok || isNull(sv) {
			return domain.Score{}, malformed(path+".score", "required")
		}
		if score.Value, ok = asNumber(sv); !ok {
			return domain.Score{}, malformed(path+".score", "must be numeric")
		}
		trendRaw = entry["trend"]
	}
	if trendRaw == nil {
		if _, tv, ok := lookup(trends, aliases); ok {
			trendRaw = tv
		}
	}
	trend, err := parseTrend(trendRaw)
	if err != nil {
		return domain.Score{}, malformed(path+".trend", err.Error())
	}
	score.Trend = trend
	return score, nil
}

func parseBacklog(raw json.RawMessage) (domain.BacklogSnapshot, error) {
	var b object
	if err := decode(raw, &b); err != nil {
		return domain.BacklogSnapshot{}, malformed(keyBacklog, "must be an object")
	}
	var snap domain.BacklogSnapshot
	fields := []struct {
		dst     *domain.OptionalNumber
		aliases []string
	}{
		{&snap.OpenPRs, []string{"open_prs", "open_pr_count"}},
		{&snap.OpenIssues, []string{"open_issues", "open_issue_count"}},
		{&snap.PRsOver365, []string{"prs_over_365_days"}},
		{&snap.IssuesOver365, []string{"issues_over_365_days", "older_than_365"}},
		{&snap.IssuesOver730, []string{"issues_over_730_days", "older_than_730"}},
		{&snap.MedianPRAge, []string{"median_pr_age_days_est", "median_open_pr_age_days"}},
		{&snap.MedianIssueAge, []string{"median_issue_age_days_est", "median_open_issue_age_days"}},
	}
	for _, f := range fields {
		key, v, ok := lookup(b, f.aliases)
		if !ok || isNull(v) {
			continue
		}
		n, ok := asNumber(v)
		if !ok {
			return domain.BacklogSnapshot{}, malformed(keyBacklog+"."+key, "must be numeric")
		}
		*f.dst = domain.Some(n)
	}
	return snap, nil
}

func parseRiskFlags(raw json.RawMessage) ([]string, error) {
	var items []json.RawMessage
	if err := decode(raw, &items); err != nil {
		return nil, malformed(keyRiskFlags, "must be an array of strings")
	}
	flags := make([]string, 0, len(items))
	for i, item := range items {
		var s string
		if err := decode(item, &s); err != nil {
			return nil, malformed(fmt.Sprintf("%s[%d]", keyRiskFlags, i), "must be a string")
		}
		flags = append(flags, s)
	}
	return flags, nil
}

// lookup returns the first alias present in m.
func lookup(m object, aliases []string) (string, json.RawMessage, bool) {
	for _, a := range aliases {
		if v, ok := m[a]; ok {
			return a, v, true
		}
	}
	return "", nil, false
}

func asNumber(raw json.RawMessage) (domain.Number, bool) {
	var v any
	if err := decode(raw, &v); err != nil {
		return domain.Number{}, false
	}
	num, ok := v.(json.Number)
	if !ok {
		return domain.Number{}, false
	}
	return domain.NewNumber(num.String())
}

// decode reads exactly one JSON value; anything after it is an error.
func decode(raw json.RawMessage, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return errors.New("unexpected data after top-level value")
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}

func malformed(field, reason string) *domain.MalformedReportError {
	return &domain.MalformedReportError{Field: field, Reason: reason}
}
