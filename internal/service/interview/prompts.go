package interview

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Prompts 发送给补全后端的指令模板。
// 占位符：Seed 与 ReportSystem 中的 {jobRole}，Turn 中的 {answer}，Report 中的 {transcript}。
type Prompts struct {
	Seed         string `yaml:"seed"`
	Turn         string `yaml:"turn"`
	ReportSystem string `yaml:"reportSystem"`
	Report       string `yaml:"report"`
}

const defaultSeedPrompt = `You are a strict technical interviewer for a {jobRole} role.
1. Ask ONE question at a time.
2. Wait for the candidate's answer.
3. If an answer is short, ask a follow-up.
4. Start by asking the candidate to introduce themselves.`

const defaultTurnPrompt = `The candidate just said: "{answer}"

1. Analyze this answer.
2. Provide a very short tip (max 15 words) as "feedback".
3. Ask exactly one next question as "question".

Return ONLY raw JSON (no markdown, no backticks) with exactly these two keys:
{"feedback": "constructive tip here", "question": "next question here"}`

const defaultReportSystemPrompt = `You assess mock technical interviews for a {jobRole} role. Be honest and specific.`

const defaultReportPrompt = `Analyze this interview transcript:
{transcript}

Return ONLY raw JSON (no markdown, no backticks) with exactly these keys:
{"score": <integer 1-10>, "strengths": ["strength 1", "strength 2"], "improvements": ["improvement 1", "improvement 2"], "suggestedAnswer": "the candidate's weakest answer rewritten to be perfect"}
If the candidate gave no answers, score 1 and say so in improvements.`

// DefaultPrompts 返回内置模板
func DefaultPrompts() Prompts {
	return Prompts{
		Seed:         defaultSeedPrompt,
		Turn:         defaultTurnPrompt,
		ReportSystem: defaultReportSystemPrompt,
		Report:       defaultReportPrompt,
	}
}

// LoadPrompts 读取 YAML 覆盖文件，留空的键保留内置模板。
func LoadPrompts(path string) (Prompts, error) {
	prompts := DefaultPrompts()
	if path == "" {
		return prompts, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return prompts, fmt.Errorf("failed to read prompts file %s: %w", path, err)
	}

	var overrides Prompts
	if err := yaml.Unmarshal(content, &overrides); err != nil {
		return prompts, fmt.Errorf("failed to parse prompts file %s: %w", path, err)
	}

	return prompts.merge(overrides), nil
}

func (p Prompts) merge(overrides Prompts) Prompts {
	if v := strings.TrimSpace(overrides.Seed); v != "" {
		p.Seed = v
	}
	if v := strings.TrimSpace(overrides.Turn); v != "" {
		p.Turn = v
	}
	if v := strings.TrimSpace(overrides.ReportSystem); v != "" {
		p.ReportSystem = v
	}
	if v := strings.TrimSpace(overrides.Report); v != "" {
		p.Report = v
	}
	return p
}

func (p Prompts) seed(jobRole string) string {
	return strings.ReplaceAll(p.Seed, "{jobRole}", jobRole)
}

func (p Prompts) turn(answer string) string {
	return strings.ReplaceAll(p.Turn, "{answer}", answer)
}

func (p Prompts) reportSystem(jobRole string) string {
	return strings.ReplaceAll(p.ReportSystem, "{jobRole}", jobRole)
}

func (p Prompts) report(transcript string) string {
	return strings.ReplaceAll(p.Report, "{transcript}", transcript)
}
