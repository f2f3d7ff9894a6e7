package interview

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTurnReply(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantTip  string
		wantNext string
		wantErr  bool
	}{
		{name: "plain", raw: `{"feedback":"Be concise.","question":"Why Go?"}`, wantTip: "Be concise.", wantNext: "Why Go?"},
		{name: "fenced", raw: "```json\n{\"feedback\":\"ok\",\"question\":\"next\"}\n```", wantTip: "ok", wantNext: "next"},
		{name: "bare fence", raw: "```{\"feedback\":\"ok\",\"question\":\"next\"}```", wantTip: "ok", wantNext: "next"},
		{name: "trims whitespace", raw: `{"feedback":"  tip  ","question":"  q  "}`, wantTip: "tip", wantNext: "q"},
		{name: "prose", raw: "Great answer! Next: why Go?", wantErr: true},
		{name: "missing question", raw: `{"feedback":"tip"}`, wantErr: true},
		{name: "empty question", raw: `{"feedback":"tip","question":"  "}`, wantErr: true},
		{name: "unknown key", raw: `{"feedback":"tip","question":"q","score":3}`, wantErr: true},
		{name: "trailing data", raw: `{"feedback":"tip","question":"q"} {"x":1}`, wantErr: true},
		{name: "wrong type", raw: `{"feedback":["tip"],"question":"q"}`, wantErr: true},
		{name: "empty", raw: "   ", wantErr: true},
		{name: "upper case keys", raw: `{"FEEDBACK":"tip","Question":"q"}`, wantErr: true},
		{name: "duplicate key", raw: `{"feedback":"a","feedback":"b","question":"q"}`, wantErr: true},
		{name: "null feedback", raw: `{"feedback":null,"question":"q"}`, wantErr: true},
		{name: "array", raw: `[{"feedback":"tip","question":"q"}]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseTurnReply(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedResponse)
				assert.Empty(t, result.Tip)
				assert.Empty(t, result.NextQuestion)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantTip, result.Tip)
			assert.Equal(t, tt.wantNext, result.NextQuestion)
		})
	}
}

func TestParseTurnReplyTruncatesLongTip(t *testing.T) {
	raw := `{"feedback":"one two three four five six seven eight nine ten eleven twelve thirteen fourteen fifteen sixteen seventeen","question":"q"}`

	result, err := parseTurnReply(raw)
	require.NoError(t, err)
	assert.Equal(t, "one two three four five six seven eight nine ten eleven twelve thirteen fourteen fifteen", result.Tip)
}

func TestParseReport(t *testing.T) {
	raw := "```json\n{\"score\": 7, \"strengths\": [\"clear\", \" \"], \"improvements\": [\"depth\"], \"suggestedAnswer\": \" better \"}\n```"

	report, err := parseReport(raw)
	require.NoError(t, err)
	assert.Equal(t, 7, report.Score)
	assert.Equal(t, []string{"clear"}, report.Strengths)
	assert.Equal(t, []string{"depth"}, report.Improvements)
	assert.Equal(t, "better", report.SuggestedAnswer)
}

func TestParseReportAcceptsSnakeCaseSuggestion(t *testing.T) {
	report, err := parseReport(`{"score":"6","strengths":[],"improvements":[],"suggested_answers":"rewrite"}`)
	require.NoError(t, err)
	assert.Equal(t, 6, report.Score)
	assert.Equal(t, "rewrite", report.SuggestedAnswer)
}

func TestParseReportRejects(t *testing.T) {
	tests := map[string]string{
		"missing score":      `{"strengths":[],"improvements":[],"suggestedAnswer":""}`,
		"score too high":     `{"score":11,"strengths":[],"improvements":[],"suggestedAnswer":""}`,
		"score zero":         `{"score":0,"strengths":[],"improvements":[],"suggestedAnswer":""}`,
		"fractional score":   `{"score":7.5,"strengths":[],"improvements":[],"suggestedAnswer":""}`,
		"word score":         `{"score":"seven","strengths":[],"improvements":[],"suggestedAnswer":""}`,
		"missing strengths":  `{"score":5,"improvements":[],"suggestedAnswer":""}`,
		"missing suggestion": `{"score":5,"strengths":[],"improvements":[]}`,
		"unknown key":        `{"score":5,"strengths":[],"improvements":[],"suggestedAnswer":"","notes":"x"}`,
		"not json":           `The candidate did fine.`,
		"capitalized key":    `{"Score":5,"strengths":[],"improvements":[],"suggestedAnswer":""}`,
		"duplicate score":    `{"score":5,"score":6,"strengths":[],"improvements":[],"suggestedAnswer":""}`,
		"both suggestions":   `{"score":5,"strengths":[],"improvements":[],"suggestedAnswer":"a","suggested_answers":"b"}`,
		"null strengths":     `{"score":5,"strengths":null,"improvements":[],"suggestedAnswer":""}`,
	}

	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := parseReport(raw)
			assert.ErrorIs(t, err, ErrMalformedResponse)
		})
	}
}

func TestParseScore(t *testing.T) {
	score, err := parseScore(json.RawMessage(`10`))
	require.NoError(t, err)
	assert.Equal(t, 10, score)

	score, err = parseScore(json.RawMessage(`" 3 "`))
	require.NoError(t, err)
	assert.Equal(t, 3, score)

	_, err = parseScore(json.RawMessage(`null`))
	assert.Error(t, err)
}
