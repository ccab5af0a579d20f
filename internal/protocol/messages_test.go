package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseServerStatus(t *testing.T) {
	msg, err := ParseServer([]byte(`{"type":"status","state":"processing_stt"}`))
	require.NoError(t, err)

	status, ok := msg.(*StatusMessage)
	require.True(t, ok, "expected *StatusMessage, got %T", msg)
	assert.Equal(t, StateProcessingSTT, status.State)
}

func TestParseServerTranscriptDelta(t *testing.T) {
	msg, err := ParseServer([]byte(
		`{"type":"transcript_delta","role":"interviewer","delta":"Tell me","is_final":false,"sequence":3}`))
	require.NoError(t, err)

	delta, ok := msg.(*TranscriptDeltaMessage)
	require.True(t, ok, "expected *TranscriptDeltaMessage, got %T", msg)
	assert.Equal(t, RoleInterviewer, delta.Role)
	assert.Equal(t, "Tell me", delta.Delta)
	assert.False(t, delta.IsFinal)
	assert.Equal(t, 3, delta.Sequence)
}

func TestParseServerAudioChunk(t *testing.T) {
	msg, err := ParseServer([]byte(
		`{"type":"audio_chunk","data":"","format":"pcm","sequence":7,"is_final":true}`))
	require.NoError(t, err)

	chunk, ok := msg.(*AudioChunkMessage)
	require.True(t, ok, "expected *AudioChunkMessage, got %T", msg)
	assert.Empty(t, chunk.Data)
	assert.True(t, chunk.IsFinal)
	assert.Equal(t, 7, chunk.Sequence)
}

func TestParseServerProblem(t *testing.T) {
	msg, err := ParseServer([]byte(`{
		"type": "problem",
		"id": "two-sum",
		"title": "Two Sum",
		"difficulty": "easy",
		"description": "Find two numbers that add to target.",
		"examples": [{"input": "[2,7], 9", "output": "[0,1]"}],
		"constraints": ["n <= 10^4"],
		"starter_code": {"go": "func twoSum() {}"},
		"tags": ["arrays"]
	}`))
	require.NoError(t, err)

	problem, ok := msg.(*ProblemMessage)
	require.True(t, ok, "expected *ProblemMessage, got %T", msg)
	assert.Equal(t, "two-sum", problem.ID)
	require.Len(t, problem.Examples, 1)
	assert.Equal(t, "[0,1]", problem.Examples[0].Output)
	assert.Equal(t, "func twoSum() {}", problem.StarterCode["go"])
}

func TestParseServerCodeEvaluation(t *testing.T) {
	msg, err := ParseServer([]byte(`{
		"type": "code_evaluation",
		"correct": true,
		"score": 87.5,
		"feedback": "solid",
		"analysis": {"correctness": 95, "edge_case_handling": 80, "code_quality": 85, "complexity": 90}
	}`))
	require.NoError(t, err)

	eval, ok := msg.(*CodeEvaluationMessage)
	require.True(t, ok, "expected *CodeEvaluationMessage, got %T", msg)
	assert.True(t, eval.Correct)
	assert.InDelta(t, 87.5, eval.Score, 0.001)
	require.NotNil(t, eval.Analysis)
	assert.Equal(t, 95, eval.Analysis.Correctness)
}

func TestParseServerUnknownTag(t *testing.T) {
	msg, err := ParseServer([]byte(`{"type":"heartbeat_v2","interval":30}`))
	require.NoError(t, err, "unrecognized tags must parse, not error")

	unknown, ok := msg.(UnknownMessage)
	require.True(t, ok, "expected UnknownMessage, got %T", msg)
	assert.Equal(t, MessageType("heartbeat_v2"), unknown.Type)
	assert.JSONEq(t, `{"type":"heartbeat_v2","interval":30}`, string(unknown.Raw))
}

func TestParseServerMalformed(t *testing.T) {
	_, err := ParseServer([]byte(`{not json`))
	assert.Error(t, err)

	_, err = ParseServer([]byte(`{"state":"ready"}`))
	assert.Error(t, err, "a frame without a type tag is malformed")
}

func TestStartInterviewOmitsZeroOptions(t *testing.T) {
	data, err := json.Marshal(StartInterviewMessage{Type: TypeStartInterview})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"start_interview"}`, string(data))

	data, err = json.Marshal(StartInterviewMessage{
		Type:  TypeStartInterview,
		Role:  "backend engineer",
		Round: 2,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"start_interview","role":"backend engineer","round":2}`, string(data))
}

func TestCodeSubmissionWireShape(t *testing.T) {
	data, err := json.Marshal(CodeSubmissionMessage{
		Type:      TypeCodeSubmission,
		ProblemID: "two-sum",
		Code:      "package main",
		Language:  "go",
	})
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"type":"code_submission","problem_id":"two-sum","code":"package main","language":"go"}`,
		string(data))
}
