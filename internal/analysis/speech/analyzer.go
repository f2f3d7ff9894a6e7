package speech

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"time"
)

// DefaultFillers 实时反馈中统计的口头禅词表
var DefaultFillers = []string{"um", "uh", "like", "you know"}

// Stats 描述一段话语当前的语速与口头禅统计。
type Stats struct {
	WPM         int `json:"wpm"`
	FillerCount int `json:"fillerCount"`
	WordCount   int `json:"wordCount"`
}

// Lexicon 按整词、忽略大小写匹配口头禅
type Lexicon struct {
	words   []string
	pattern *regexp.Regexp
}

// NewLexicon 编译给定的口头禅，空列表时使用 DefaultFillers。
// 多词口头禅之间允许任意空白。
func NewLexicon(words []string) *Lexicon {
	normalized := make([]string, 0, len(words))
	seen := make(map[string]struct{}, len(words))
	for _, word := range words {
		word = strings.Join(strings.Fields(strings.ToLower(word)), " ")
		if word == "" {
			continue
		}
		if _, ok := seen[word]; ok {
			continue
		}
		seen[word] = struct{}{}
		normalized = append(normalized, word)
	}
	if len(normalized) == 0 {
		normalized = append(normalized, DefaultFillers...)
	}

	// 长短语优先，避免 "you know" 被更短的候选截断。
	alternatives := append([]string(nil), normalized...)
	sort.SliceStable(alternatives, func(i, j int) bool {
		return len(alternatives[i]) > len(alternatives[j])
	})
	for i, word := range alternatives {
		parts := strings.Fields(word)
		for j, part := range parts {
			parts[j] = regexp.QuoteMeta(part)
		}
		alternatives[i] = strings.Join(parts, `\s+`)
	}

	return &Lexicon{
		words:   normalized,
		pattern: regexp.MustCompile(`(?i)\b(?:` + strings.Join(alternatives, "|") + `)\b`),
	}
}

// Words 返回规范化后的词条
func (l *Lexicon) Words() []string {
	return append([]string(nil), l.words...)
}

// Count 返回 text 中口头禅出现的次数
func (l *Lexicon) Count(text string) int {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	return len(l.pattern.FindAllStringIndex(text, -1))
}

// Analyze 计算目前为止的语速与口头禅数量
func (l *Lexicon) Analyze(transcript string, elapsed time.Duration) Stats {
	words := len(strings.Fields(transcript))
	return Stats{
		WPM:         wordsPerMinute(words, elapsed),
		FillerCount: l.Count(transcript),
		WordCount:   words,
	}
}

var defaultLexicon = NewLexicon(DefaultFillers)

// Analyze 使用默认词表统计
func Analyze(transcript string, elapsed time.Duration) Stats {
	return defaultLexicon.Analyze(transcript, elapsed)
}

func wordsPerMinute(words int, elapsed time.Duration) int {
	minutes := elapsed.Minutes()
	if minutes <= 0 || words == 0 {
		return 0
	}
	return int(math.Round(float64(words) / minutes))
}
