package interview

import "time"

// Role 标识一轮对话属于面试官还是候选人
type Role string

const (
	RoleInterviewer Role = "interviewer"
	RoleCandidate   Role = "candidate"
)

// Turn 面试记录中的一条消息
type Turn struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// Session 一次面试，以调用方生成的 id 为键
type Session struct {
	ID        string    `json:"sessionId"`
	JobRole   string    `json:"jobRole"`
	Turns     []Turn    `json:"turns"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CandidateTurns 统计候选人已回答的次数
func (s Session) CandidateTurns() int {
	count := 0
	for _, turn := range s.Turns {
		if turn.Role == RoleCandidate {
			count++
		}
	}
	return count
}

// Clone 返回可安全交给调用方的深拷贝
func (s Session) Clone() Session {
	cloned := s
	cloned.Turns = make([]Turn, len(s.Turns))
	copy(cloned.Turns, s.Turns)
	return cloned
}
