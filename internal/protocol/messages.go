// Package protocol defines the WebSocket message types exchanged with the
// interview backend. One JSON object per message, discriminated by "type".
package protocol

import (
	"encoding/json"
	"fmt"
)

// MessageType identifies the type of a WebSocket message.
type MessageType string

const (
	// Server → Client messages
	TypeStatus          MessageType = "status"
	TypeTranscript      MessageType = "transcript"
	TypeTranscriptDelta MessageType = "transcript_delta"
	TypeAudio           MessageType = "audio"
	TypeAudioChunk      MessageType = "audio_chunk"
	TypeStreamingStatus MessageType = "streaming_status"
	TypeError           MessageType = "error"
	TypeSessionStarted  MessageType = "session_started"
	TypeSessionEnded    MessageType = "session_ended"
	TypeEvaluation      MessageType = "evaluation"
	TypeProblem         MessageType = "problem"
	TypeCodeEvaluation  MessageType = "code_evaluation"

	// Client → Server messages
	TypeSendAudio         MessageType = "audio"
	TypeResumeContext     MessageType = "resume_context"
	TypeStartInterview    MessageType = "start_interview"
	TypeRequestEvaluation MessageType = "request_evaluation"
	TypePlaybackComplete  MessageType = "playback_complete"
	TypeEndSession        MessageType = "end_session"
	TypeRequestProblem    MessageType = "request_problem"
	TypeCodeSubmission    MessageType = "code_submission"
)

// InterviewState is the backend's interview state machine value carried by
// status messages.
type InterviewState string

const (
	StateReady         InterviewState = "ready"
	StateProcessingSTT InterviewState = "processing_stt"
	StateGenerating    InterviewState = "generating"
	StateSpeaking      InterviewState = "speaking"
	StateError         InterviewState = "error"
)

// Role identifies who a transcript entry belongs to.
type Role string

const (
	RoleCandidate   Role = "candidate"
	RoleInterviewer Role = "interviewer"
)

// StreamingStage identifies which stage of the voice pipeline a
// streaming_status message reports on.
type StreamingStage string

const (
	StageTranscribing StreamingStage = "transcribing"
	StageThinking     StreamingStage = "thinking"
	StageSpeaking     StreamingStage = "speaking"
)

// ServerMessage is the closed variant over all inbound message kinds.
// UnknownMessage covers tags this client version does not recognize.
type ServerMessage interface {
	messageType() MessageType
}

// StatusMessage reports the backend interview state.
type StatusMessage struct {
	Type  MessageType    `json:"type"`
	State InterviewState `json:"state"`
}

// TranscriptMessage is a complete transcript entry. It supersedes any
// streaming entry accumulated from deltas for the same role.
type TranscriptMessage struct {
	Type     MessageType `json:"type"`
	Role     Role        `json:"role"`
	Text     string      `json:"text"`
	Sequence int         `json:"sequence"`
}

// TranscriptDeltaMessage is an incremental transcript fragment. Sequence
// numbers increase monotonically per role; deltas may arrive out of order.
type TranscriptDeltaMessage struct {
	Type     MessageType `json:"type"`
	Role     Role        `json:"role"`
	Delta    string      `json:"delta"`
	IsFinal  bool        `json:"is_final"`
	Sequence int         `json:"sequence"`
}

// AudioMessage carries a complete base64-encoded audio response.
type AudioMessage struct {
	Type   MessageType `json:"type"`
	Data   string      `json:"data"`
	Format string      `json:"format"`
}

// AudioChunkMessage carries one base64-encoded chunk of a streamed audio
// response. An empty Data with IsFinal set is a bare end-of-stream marker.
type AudioChunkMessage struct {
	Type     MessageType `json:"type"`
	Data     string      `json:"data"`
	Format   string      `json:"format"`
	Sequence int         `json:"sequence"`
	IsFinal  bool        `json:"is_final"`
}

// StreamingStatusMessage reports pipeline stage latency.
type StreamingStatusMessage struct {
	Type      MessageType    `json:"type"`
	Stage     StreamingStage `json:"stage"`
	LatencyMS int64          `json:"latency_ms"`
}

// ErrorMessage is a backend-reported error.
type ErrorMessage struct {
	Type        MessageType `json:"type"`
	Code        string      `json:"code"`
	Message     string      `json:"message"`
	Recoverable bool        `json:"recoverable"`
}

// SessionStartedMessage confirms the session is live.
type SessionStartedMessage struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
}

// SessionEndedMessage reports session teardown.
type SessionEndedMessage struct {
	Type       MessageType `json:"type"`
	SessionID  string      `json:"session_id"`
	TotalTurns int         `json:"total_turns"`
}

// EvaluationMessage is the round evaluation result.
type EvaluationMessage struct {
	Type     MessageType `json:"type"`
	Round    int         `json:"round"`
	Score    float64     `json:"score"`
	Passed   bool        `json:"passed"`
	Feedback string      `json:"feedback"`
}

// Example is a worked example attached to a coding problem.
type Example struct {
	Input       string `json:"input"`
	Output      string `json:"output"`
	Explanation string `json:"explanation,omitempty"`
}

// ProblemMessage assigns a coding problem to the candidate.
type ProblemMessage struct {
	Type        MessageType       `json:"type"`
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Difficulty  string            `json:"difficulty"`
	Description string            `json:"description"`
	Examples    []Example         `json:"examples"`
	Constraints []string          `json:"constraints"`
	StarterCode map[string]string `json:"starter_code"`
	Tags        []string          `json:"tags"`
}

// CodeAnalysis breaks a code evaluation down per axis (0-100 each).
type CodeAnalysis struct {
	Correctness      int `json:"correctness"`
	EdgeCaseHandling int `json:"edge_case_handling"`
	CodeQuality      int `json:"code_quality"`
	Complexity       int `json:"complexity"`
}

// CodeEvaluationMessage is the result of evaluating a code submission.
type CodeEvaluationMessage struct {
	Type     MessageType   `json:"type"`
	Correct  bool          `json:"correct"`
	Score    float64       `json:"score"`
	Feedback string        `json:"feedback"`
	Analysis *CodeAnalysis `json:"analysis,omitempty"`
}

// UnknownMessage holds a well-formed message whose tag this client does not
// recognize. Callers drop these silently so newer backends can add message
// kinds without breaking older clients.
type UnknownMessage struct {
	Type MessageType
	Raw  json.RawMessage
}

func (StatusMessage) messageType() MessageType          { return TypeStatus }
func (TranscriptMessage) messageType() MessageType      { return TypeTranscript }
func (TranscriptDeltaMessage) messageType() MessageType { return TypeTranscriptDelta }
func (AudioMessage) messageType() MessageType           { return TypeAudio }
func (AudioChunkMessage) messageType() MessageType      { return TypeAudioChunk }
func (StreamingStatusMessage) messageType() MessageType { return TypeStreamingStatus }
func (ErrorMessage) messageType() MessageType           { return TypeError }
func (SessionStartedMessage) messageType() MessageType  { return TypeSessionStarted }
func (SessionEndedMessage) messageType() MessageType    { return TypeSessionEnded }
func (EvaluationMessage) messageType() MessageType      { return TypeEvaluation }
func (ProblemMessage) messageType() MessageType         { return TypeProblem }
func (CodeEvaluationMessage) messageType() MessageType  { return TypeCodeEvaluation }
func (m UnknownMessage) messageType() MessageType       { return m.Type }

// ParseServer parses one inbound frame into its typed message. A frame that
// is not valid JSON, or has no type tag, is a parse error. A well-formed
// frame with an unrecognized tag parses into UnknownMessage, never an error.
func ParseServer(data []byte) (ServerMessage, error) {
	var envelope struct {
		Type MessageType `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("parse message envelope: %w", err)
	}
	if envelope.Type == "" {
		return nil, fmt.Errorf("message missing type tag")
	}

	decode := func(v ServerMessage) (ServerMessage, error) {
		if err := json.Unmarshal(data, v); err != nil {
			return nil, fmt.Errorf("parse %s message: %w", envelope.Type, err)
		}
		return v, nil
	}

	switch envelope.Type {
	case TypeStatus:
		return decode(&StatusMessage{})
	case TypeTranscript:
		return decode(&TranscriptMessage{})
	case TypeTranscriptDelta:
		return decode(&TranscriptDeltaMessage{})
	case TypeAudio:
		return decode(&AudioMessage{})
	case TypeAudioChunk:
		return decode(&AudioChunkMessage{})
	case TypeStreamingStatus:
		return decode(&StreamingStatusMessage{})
	case TypeError:
		return decode(&ErrorMessage{})
	case TypeSessionStarted:
		return decode(&SessionStartedMessage{})
	case TypeSessionEnded:
		return decode(&SessionEndedMessage{})
	case TypeEvaluation:
		return decode(&EvaluationMessage{})
	case TypeProblem:
		return decode(&ProblemMessage{})
	case TypeCodeEvaluation:
		return decode(&CodeEvaluationMessage{})
	default:
		return UnknownMessage{
			Type: envelope.Type,
			Raw:  append(json.RawMessage(nil), data...),
		}, nil
	}
}
