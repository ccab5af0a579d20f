package protocol

// Outbound command payloads. Optional fields carry omitempty so the wire
// payload stays minimal; the backend treats absent and default the same way.

// SendAudioMessage carries candidate audio to the backend.
type SendAudioMessage struct {
	Type   MessageType `json:"type"`
	Data   string      `json:"data"`
	Format string      `json:"format"`
}

// ResumeContextMessage supplies resume context before the interview starts.
// Either a parsed resume document or raw text; both may be present.
type ResumeContextMessage struct {
	Type         MessageType    `json:"type"`
	ResumeText   string         `json:"resume_text,omitempty"`
	ParsedResume map[string]any `json:"parsed_resume,omitempty"`
}

// StartInterviewMessage signals readiness to begin. Role, round, and mode
// are optional overrides.
type StartInterviewMessage struct {
	Type  MessageType `json:"type"`
	Role  string      `json:"role,omitempty"`
	Round int         `json:"round,omitempty"`
	Mode  string      `json:"mode,omitempty"`
}

// RequestEvaluationMessage asks the backend to score the current round.
type RequestEvaluationMessage struct {
	Type MessageType `json:"type"`
}

// PlaybackCompleteMessage tells the backend the client finished playing the
// interviewer's audio and is ready for the next turn.
type PlaybackCompleteMessage struct {
	Type MessageType `json:"type"`
}

// EndSessionMessage requests session teardown.
type EndSessionMessage struct {
	Type MessageType `json:"type"`
}

// RequestProblemMessage asks the backend to assign a coding problem.
type RequestProblemMessage struct {
	Type MessageType `json:"type"`
}

// CodeSubmissionMessage submits candidate code for evaluation.
type CodeSubmissionMessage struct {
	Type      MessageType `json:"type"`
	ProblemID string      `json:"problem_id"`
	Code      string      `json:"code"`
	Language  string      `json:"language"`
}
