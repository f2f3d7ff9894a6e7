package interview

// TurnResult 候选人回答后看到的提示与下一个问题
type TurnResult struct {
	Tip          string `json:"feedback"`
	NextQuestion string `json:"question"`
}

// LiveFeedback 每次转写更新都重新计算，不落存储
type LiveFeedback struct {
	WPM         int    `json:"wpm"`
	FillerCount int    `json:"fillerCount"`
	AITip       string `json:"aiTip"`
}

// FinalReport 面试结束后的总结报告
type FinalReport struct {
	Score           int      `json:"score"`
	Strengths       []string `json:"strengths"`
	Improvements    []string `json:"improvements"`
	SuggestedAnswer string   `json:"suggestedAnswer"`
}
