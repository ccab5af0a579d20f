package session

import (
	"github.com/voxprep/interviewclient/internal/protocol"
)

// route parses one inbound frame and dispatches it to the listeners for its
// tag. Parse failures surface as recoverable PARSE_ERROR; a well-formed
// message with an unrecognized tag is dropped silently so newer backends can
// add message kinds without breaking this client; a tag with no registered
// listener is a silent no-op.
func (c *Client) route(data []byte) {
	msg, err := protocol.ParseServer(data)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to parse message")
		c.emitClientError(&ClientError{
			Code:        ErrCodeParse,
			Message:     "malformed message",
			Recoverable: true,
			Err:         err,
		})
		return
	}

	switch m := msg.(type) {
	case *protocol.StatusMessage:
		c.listeners.mu.RLock()
		fns := c.listeners.status
		c.listeners.mu.RUnlock()
		for _, fn := range fns {
			fn(m.State)
		}

	case *protocol.TranscriptMessage:
		c.transcript.Commit(m.Role, m.Text, m.Sequence)
		c.listeners.mu.RLock()
		fns := c.listeners.transcript
		c.listeners.mu.RUnlock()
		for _, fn := range fns {
			fn(*m)
		}

	case *protocol.TranscriptDeltaMessage:
		if !c.transcript.ApplyDelta(m.Role, m.Delta, m.IsFinal, m.Sequence) {
			c.logger.Debug().
				Str("role", string(m.Role)).
				Int("sequence", m.Sequence).
				Msg("Dropped stale transcript delta")
			return
		}
		c.listeners.mu.RLock()
		fns := c.listeners.transcriptDelta
		c.listeners.mu.RUnlock()
		for _, fn := range fns {
			fn(*m)
		}

	case *protocol.AudioMessage:
		c.listeners.mu.RLock()
		fns := c.listeners.audio
		c.listeners.mu.RUnlock()
		for _, fn := range fns {
			fn(*m)
		}

	case *protocol.AudioChunkMessage:
		c.listeners.mu.RLock()
		fns := c.listeners.audioChunk
		c.listeners.mu.RUnlock()
		for _, fn := range fns {
			fn(*m)
		}

	case *protocol.StreamingStatusMessage:
		c.listeners.mu.RLock()
		fns := c.listeners.streamingStatus
		c.listeners.mu.RUnlock()
		for _, fn := range fns {
			fn(*m)
		}

	case *protocol.ErrorMessage:
		c.logger.Warn().
			Str("code", m.Code).
			Bool("recoverable", m.Recoverable).
			Msg("Server error: " + m.Message)
		c.listeners.mu.RLock()
		fns := c.listeners.serverError
		c.listeners.mu.RUnlock()
		for _, fn := range fns {
			fn(*m)
		}

	case *protocol.SessionStartedMessage:
		c.listeners.mu.RLock()
		fns := c.listeners.sessionStarted
		c.listeners.mu.RUnlock()
		for _, fn := range fns {
			fn(*m)
		}

	case *protocol.SessionEndedMessage:
		c.listeners.mu.RLock()
		fns := c.listeners.sessionEnded
		c.listeners.mu.RUnlock()
		for _, fn := range fns {
			fn(*m)
		}

	case *protocol.EvaluationMessage:
		c.listeners.mu.RLock()
		fns := c.listeners.evaluation
		c.listeners.mu.RUnlock()
		for _, fn := range fns {
			fn(*m)
		}

	case *protocol.ProblemMessage:
		c.listeners.mu.RLock()
		fns := c.listeners.problem
		c.listeners.mu.RUnlock()
		for _, fn := range fns {
			fn(*m)
		}

	case *protocol.CodeEvaluationMessage:
		c.listeners.mu.RLock()
		fns := c.listeners.codeEvaluation
		c.listeners.mu.RUnlock()
		for _, fn := range fns {
			fn(*m)
		}

	case protocol.UnknownMessage:
		c.logger.Debug().Str("type", string(m.Type)).Msg("Unknown message type")
	}
}
