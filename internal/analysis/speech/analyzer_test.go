package speech

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAnalyzeScenarioTranscript(t *testing.T) {
	transcript := "um so like I worked on uh backend systems you know"

	stats := Analyze(transcript, 30*time.Second)

	assert.Equal(t, 4, stats.FillerCount)
	assert.Equal(t, 11, stats.WordCount)
	assert.Equal(t, 22, stats.WPM)
}

func TestAnalyzeTenWordsOverThirtySeconds(t *testing.T) {
	stats := Analyze("one two three four five six seven eight nine ten", 30*time.Second)

	assert.Equal(t, 20, stats.WPM)
	assert.Equal(t, 0, stats.FillerCount)
}

func TestAnalyzeZeroElapsed(t *testing.T) {
	for _, transcript := range []string{"", "hello", "um uh like you know"} {
		stats := Analyze(transcript, 0)
		assert.Equal(t, 0, stats.WPM, transcript)
	}

	assert.Equal(t, 0, Analyze("hello there", -time.Second).WPM)
}

func TestAnalyzeWholeWordFillers(t *testing.T) {
	tests := []struct {
		name       string
		transcript string
		want       int
	}{
		{name: "unlike is not like", transcript: "unlike my peers", want: 0},
		{name: "likely is not like", transcript: "likely yes, I liked it", want: 0},
		{name: "case insensitive", transcript: "UM, Uh, LIKE, You Know", want: 4},
		{name: "punctuation boundaries", transcript: "well, like... um? uh!", want: 3},
		{name: "you know across spaces", transcript: "you   know what", want: 1},
		{name: "partial words", transcript: "umbrella huh youknow", want: 0},
		{name: "empty", transcript: "   ", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Analyze(tt.transcript, time.Minute).FillerCount)
		})
	}
}

func TestAnalyzeIsIdempotent(t *testing.T) {
	transcript := "so um I think like the cache was uh cold"

	first := Analyze(transcript, 12*time.Second)
	second := Analyze(transcript, 12*time.Second)

	assert.Equal(t, first, second)
}

func TestNewLexiconCustomWords(t *testing.T) {
	lexicon := NewLexicon([]string{"Basically", "  sort   of ", "basically"})

	assert.Equal(t, []string{"basically", "sort of"}, lexicon.Words())
	assert.Equal(t, 2, lexicon.Count("basically it was sort of fine"))
	assert.Equal(t, 0, lexicon.Count("um uh"))
}

func TestNewLexiconFallsBackToDefaults(t *testing.T) {
	assert.Equal(t, DefaultFillers, NewLexicon(nil).Words())
}
