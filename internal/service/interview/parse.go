package interview

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"

	model "github.com/zhouzirui/mock-interview/backend/internal/model/interview"
)

const maxTipWords = 15

var fencePattern = regexp.MustCompile("(?i)```(?:json)?")

// stripFences 去掉 JSON 外层的 markdown 代码块与多余反引号。
func stripFences(raw string) string {
	cleaned := fencePattern.ReplaceAllString(raw, "")
	return strings.Trim(strings.TrimSpace(cleaned), "`\n\r\t ")
}

// decodeObject 读取恰好一个 JSON 对象并按原样返回各字段。
// 键区分大小写，重复键与尾随数据都视为错误。
func decodeObject(raw string, allowed ...string) (map[string]json.RawMessage, error) {
	cleaned := stripFences(raw)
	if cleaned == "" {
		return nil, errors.New("empty payload")
	}

	decoder := json.NewDecoder(strings.NewReader(cleaned))
	if tok, err := decoder.Token(); err != nil || tok != json.Delim('{') {
		return nil, errors.New("payload is not a JSON object")
	}

	fields := make(map[string]json.RawMessage, len(allowed))
	for decoder.More() {
		tok, err := decoder.Token()
		if err != nil {
			return nil, err
		}
		key, _ := tok.(string)
		if !contains(allowed, key) {
			return nil, fmt.Errorf("unknown key %q", key)
		}
		if _, dup := fields[key]; dup {
			return nil, fmt.Errorf("duplicate key %q", key)
		}

		var value json.RawMessage
		if err := decoder.Decode(&value); err != nil {
			return nil, err
		}
		fields[key] = value
	}

	if _, err := decoder.Token(); err != nil {
		return nil, err
	}
	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after JSON object")
	}
	return fields, nil
}

// stringField 取出必填字符串字段，null 视为缺失。
func stringField(fields map[string]json.RawMessage, key string) (string, error) {
	raw, ok := fields[key]
	if !ok || string(raw) == "null" {
		return "", fmt.Errorf("%s is required", key)
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", fmt.Errorf("%s must be a string", key)
	}
	return strings.TrimSpace(value), nil
}

// listField 取出必填字符串数组字段。
func listField(fields map[string]json.RawMessage, key string) ([]string, error) {
	raw, ok := fields[key]
	if !ok || string(raw) == "null" {
		return nil, fmt.Errorf("%s is required", key)
	}
	var values []string
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("%s must be an array of strings", key)
	}
	return compact(values), nil
}

// parseTurnReply 要么返回完整的 TurnResult，要么返回 ErrMalformedResponse，不会给出半成品。
func parseTurnReply(raw string) (model.TurnResult, error) {
	fields, err := decodeObject(raw, "feedback", "question")
	if err != nil {
		return model.TurnResult{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	tip, err := stringField(fields, "feedback")
	if err != nil {
		return model.TurnResult{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	question, err := stringField(fields, "question")
	if err != nil {
		return model.TurnResult{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	if tip == "" || question == "" {
		return model.TurnResult{}, fmt.Errorf("%w: feedback and question must be non-empty", ErrMalformedResponse)
	}

	return model.TurnResult{Tip: truncateWords(tip, maxTipWords), NextQuestion: question}, nil
}

// parseReport 要么返回完整的 FinalReport，要么返回 ErrMalformedResponse。
// suggested_answers 是 suggestedAnswer 的旧键名，两者只能出现一个。
func parseReport(raw string) (model.FinalReport, error) {
	fields, err := decodeObject(raw, "score", "strengths", "improvements", "suggestedAnswer", "suggested_answers")
	if err != nil {
		return model.FinalReport{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	report, err := reportFromFields(fields)
	if err != nil {
		return model.FinalReport{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return report, nil
}

func reportFromFields(fields map[string]json.RawMessage) (model.FinalReport, error) {
	score, err := parseScore(fields["score"])
	if err != nil {
		return model.FinalReport{}, err
	}

	strengths, err := listField(fields, "strengths")
	if err != nil {
		return model.FinalReport{}, err
	}
	improvements, err := listField(fields, "improvements")
	if err != nil {
		return model.FinalReport{}, err
	}

	suggestedKey := "suggestedAnswer"
	if _, ok := fields["suggested_answers"]; ok {
		if _, both := fields[suggestedKey]; both {
			return model.FinalReport{}, errors.New("suggestedAnswer and suggested_answers are mutually exclusive")
		}
		suggestedKey = "suggested_answers"
	}
	suggested, err := stringField(fields, suggestedKey)
	if err != nil {
		return model.FinalReport{}, fmt.Errorf("suggestedAnswer is required")
	}

	return model.FinalReport{
		Score:           score,
		Strengths:       strengths,
		Improvements:    improvements,
		SuggestedAnswer: suggested,
	}, nil
}

// parseScore 接受 1-10 之间的整数，或内容为整数的字符串。
func parseScore(raw json.RawMessage) (int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, errors.New("score is required")
	}

	var value float64
	if err := json.Unmarshal(raw, &value); err != nil {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, fmt.Errorf("score must be a number: %s", raw)
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return 0, fmt.Errorf("score must be a number: %q", text)
		}
		value = parsed
	}

	if value != math.Trunc(value) || value < 1 || value > 10 {
		return 0, fmt.Errorf("score must be an integer between 1 and 10, got %v", value)
	}
	return int(value), nil
}

func contains(items []string, want string) bool {
	for _, item := range items {
		if item == want {
			return true
		}
	}
	return false
}

func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func truncateWords(text string, limit int) string {
	words := strings.Fields(text)
	if len(words) <= limit {
		return text
	}
	return strings.Join(words[:limit], " ")
}
