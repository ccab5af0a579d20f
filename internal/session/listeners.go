package session

import (
	"sync"

	"github.com/voxprep/interviewclient/internal/protocol"
)

// listeners holds typed per-event observer lists. Each message kind gets its
// own registration method on Client rather than one options struct full of
// optional callbacks; a kind with no listener is simply not dispatched.
type listeners struct {
	mu sync.RWMutex

	connection      []func(connected bool)
	status          []func(protocol.InterviewState)
	transcript      []func(protocol.TranscriptMessage)
	transcriptDelta []func(protocol.TranscriptDeltaMessage)
	audio           []func(protocol.AudioMessage)
	audioChunk      []func(protocol.AudioChunkMessage)
	streamingStatus []func(protocol.StreamingStatusMessage)
	serverError     []func(protocol.ErrorMessage)
	sessionStarted  []func(protocol.SessionStartedMessage)
	sessionEnded    []func(protocol.SessionEndedMessage)
	evaluation      []func(protocol.EvaluationMessage)
	problem         []func(protocol.ProblemMessage)
	codeEvaluation  []func(protocol.CodeEvaluationMessage)
	clientError     []func(*ClientError)
}

// OnConnectionChange registers a listener for connection state changes.
// It fires with true on every successful open and false on unexpected close.
func (c *Client) OnConnectionChange(fn func(connected bool)) {
	c.listeners.mu.Lock()
	defer c.listeners.mu.Unlock()
	c.listeners.connection = append(c.listeners.connection, fn)
}

// OnStatus registers a listener for interview state updates.
func (c *Client) OnStatus(fn func(protocol.InterviewState)) {
	c.listeners.mu.Lock()
	defer c.listeners.mu.Unlock()
	c.listeners.status = append(c.listeners.status, fn)
}

// OnTranscript registers a listener for complete transcript entries.
func (c *Client) OnTranscript(fn func(protocol.TranscriptMessage)) {
	c.listeners.mu.Lock()
	defer c.listeners.mu.Unlock()
	c.listeners.transcript = append(c.listeners.transcript, fn)
}

// OnTranscriptDelta registers a listener for streamed transcript fragments.
// Stale deltas are dropped by the sequence guard and never dispatched.
func (c *Client) OnTranscriptDelta(fn func(protocol.TranscriptDeltaMessage)) {
	c.listeners.mu.Lock()
	defer c.listeners.mu.Unlock()
	c.listeners.transcriptDelta = append(c.listeners.transcriptDelta, fn)
}

// OnAudio registers a listener for complete audio responses.
func (c *Client) OnAudio(fn func(protocol.AudioMessage)) {
	c.listeners.mu.Lock()
	defer c.listeners.mu.Unlock()
	c.listeners.audio = append(c.listeners.audio, fn)
}

// OnAudioChunk registers a listener for streamed audio chunks.
func (c *Client) OnAudioChunk(fn func(protocol.AudioChunkMessage)) {
	c.listeners.mu.Lock()
	defer c.listeners.mu.Unlock()
	c.listeners.audioChunk = append(c.listeners.audioChunk, fn)
}

// OnStreamingStatus registers a listener for pipeline latency updates.
func (c *Client) OnStreamingStatus(fn func(protocol.StreamingStatusMessage)) {
	c.listeners.mu.Lock()
	defer c.listeners.mu.Unlock()
	c.listeners.streamingStatus = append(c.listeners.streamingStatus, fn)
}

// OnServerError registers a listener for backend-reported errors.
func (c *Client) OnServerError(fn func(protocol.ErrorMessage)) {
	c.listeners.mu.Lock()
	defer c.listeners.mu.Unlock()
	c.listeners.serverError = append(c.listeners.serverError, fn)
}

// OnSessionStarted registers a listener for session start confirmation.
func (c *Client) OnSessionStarted(fn func(protocol.SessionStartedMessage)) {
	c.listeners.mu.Lock()
	defer c.listeners.mu.Unlock()
	c.listeners.sessionStarted = append(c.listeners.sessionStarted, fn)
}

// OnSessionEnded registers a listener for session teardown.
func (c *Client) OnSessionEnded(fn func(protocol.SessionEndedMessage)) {
	c.listeners.mu.Lock()
	defer c.listeners.mu.Unlock()
	c.listeners.sessionEnded = append(c.listeners.sessionEnded, fn)
}

// OnEvaluation registers a listener for round evaluation results.
func (c *Client) OnEvaluation(fn func(protocol.EvaluationMessage)) {
	c.listeners.mu.Lock()
	defer c.listeners.mu.Unlock()
	c.listeners.evaluation = append(c.listeners.evaluation, fn)
}

// OnProblem registers a listener for coding problem assignments.
func (c *Client) OnProblem(fn func(protocol.ProblemMessage)) {
	c.listeners.mu.Lock()
	defer c.listeners.mu.Unlock()
	c.listeners.problem = append(c.listeners.problem, fn)
}

// OnCodeEvaluation registers a listener for code evaluation results.
func (c *Client) OnCodeEvaluation(fn func(protocol.CodeEvaluationMessage)) {
	c.listeners.mu.Lock()
	defer c.listeners.mu.Unlock()
	c.listeners.codeEvaluation = append(c.listeners.codeEvaluation, fn)
}

// OnClientError registers a listener for client-side errors (connection,
// parse, not-connected, reconnect exhaustion).
func (c *Client) OnClientError(fn func(*ClientError)) {
	c.listeners.mu.Lock()
	defer c.listeners.mu.Unlock()
	c.listeners.clientError = append(c.listeners.clientError, fn)
}

func (c *Client) emitConnection(connected bool) {
	c.listeners.mu.RLock()
	fns := c.listeners.connection
	c.listeners.mu.RUnlock()
	for _, fn := range fns {
		fn(connected)
	}
}

func (c *Client) emitClientError(err *ClientError) {
	c.listeners.mu.RLock()
	fns := c.listeners.clientError
	c.listeners.mu.RUnlock()
	for _, fn := range fns {
		fn(err)
	}
}
