package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/studyspot-cli/internal/model"
	"github.com/sells-group/studyspot-cli/internal/scorer"
)

func sampleRanking() *scorer.Outcome {
	vs := model.Verdicts{model.Matched, model.Matched, model.Matched, model.Unmatched, model.Skipped, model.Skipped, model.Matched}
	return &scorer.Outcome{
		Requested: model.ModeWeighted,
		Mode:      model.ModeWeighted,
		Ranking: &model.Ranking{
			Results: []model.Recommendation{{
				Rank:         1,
				Score:        12,
				MaxScore:     15,
				Name:         "Cafe A",
				Link:         "https://naver.me/cafe-a",
				Explanation:  scorer.Explain(vs, model.ExplainShort),
				MatchBar:     scorer.MatchBar(vs),
				MatchPercent: scorer.MatchPercent(vs),
				Summary:      scorer.Summary(vs),
				Verdicts:     vs,
			}},
			Requested: 1,
			MaxScore:  15,
		},
	}
}

func TestPercentBar(t *testing.T) {
	tests := []struct {
		pct  int
		want string
	}{
		{0, "░░░░░░░░░░"},
		{80, "████████░░"},
		{85, "████████░░"},
		{100, "██████████"},
		{150, "██████████"},
		{-5, "░░░░░░░░░░"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, percentBar(tt.pct), "pct %d", tt.pct)
	}
}

func TestWriteOutcome_RankingTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeOutcome(&buf, sampleRanking(), formatTable, model.ExplainShort))

	out := buf.String()
	assert.Contains(t, out, "#1 Cafe A")
	assert.Contains(t, out, "Score:  12 / 15")
	assert.Contains(t, out, "████████░░  80%  ✔✔✔✘➖➖✔")
	assert.Contains(t, out, "Matched 4 out of 5 preferences (80% match)")
	assert.Contains(t, out, "✘ vibe")
	assert.Contains(t, out, "➖ price")
	assert.Contains(t, out, "Map:    https://naver.me/cafe-a")
}

func TestWriteOutcome_RankingTableLong(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeOutcome(&buf, sampleRanking(), formatTable, model.ExplainLong))

	out := buf.String()
	assert.Contains(t, out, "Travel time matched")
	assert.Contains(t, out, "Vibe did not match")
	assert.Contains(t, out, "Seating: no preference given")
}

func TestWriteOutcome_CSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeOutcome(&buf, sampleRanking(), formatCSV, model.ExplainShort))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "rank,name,score,max_score,match_percent,match_bar,summary,explanation,link", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "1,Cafe A,12,15,80,✔✔✔✘➖➖✔,"))
}

func TestWriteOutcome_JSONIsDeterministic(t *testing.T) {
	var a, b bytes.Buffer
	require.NoError(t, writeOutcome(&a, sampleRanking(), formatJSON, model.ExplainShort))
	require.NoError(t, writeOutcome(&b, sampleRanking(), formatJSON, model.ExplainShort))
	assert.Equal(t, a.String(), b.String())
	assert.Contains(t, a.String(), `"match_bar": "✔✔✔✘➖➖✔"`)
	assert.Contains(t, a.String(), `"unmatched"`)
}

func TestWriteOutcome_MatchTable(t *testing.T) {
	out := &scorer.Outcome{
		Requested: model.ModeStrict,
		Mode:      model.ModeStrict,
		Matches: []model.Match{
			{Name: "Cafe A", Link: "https://naver.me/cafe-a"},
			{Name: "A Very Long Study Cafe Name That Will Not Fit The Column", Link: "https://naver.me/long"},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, writeOutcome(&buf, out, formatTable, model.ExplainLong))
	s := buf.String()
	assert.Contains(t, s, "Name")
	assert.Contains(t, s, "1    Cafe A")
	assert.Contains(t, s, "A Very Long Study Cafe Name That ...")
}

func TestWriteOutcome_EmptyRanking(t *testing.T) {
	out := &scorer.Outcome{Mode: model.ModeWeighted, Ranking: &model.Ranking{Results: []model.Recommendation{}}}

	var buf bytes.Buffer
	require.NoError(t, writeOutcome(&buf, out, formatTable, model.ExplainLong))
	assert.Equal(t, "No study spots to rank.\n", buf.String())
}

func TestCheckFormat(t *testing.T) {
	assert.NoError(t, checkFormat("table", ""))
	assert.NoError(t, checkFormat("json", ""))
	assert.NoError(t, checkFormat("xlsx", "out.xlsx"))
	assert.Error(t, checkFormat("xlsx", ""))
	assert.Error(t, checkFormat("html", ""))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "서울도서관", truncate("서울도서관", 5))
}
