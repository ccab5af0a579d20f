package session

import (
	"encoding/base64"

	"github.com/voxprep/interviewclient/internal/protocol"
)

// StartOptions carries the optional overrides for StartInterview. Zero
// values are omitted from the wire payload.
type StartOptions struct {
	Role  string
	Round int
	Mode  string
}

// SendAudio sends a recorded candidate utterance. Format defaults to webm,
// the capture format the backend expects when unspecified.
func (c *Client) SendAudio(data []byte, format string) error {
	if format == "" {
		format = "webm"
	}
	return c.send(protocol.SendAudioMessage{
		Type:   protocol.TypeSendAudio,
		Data:   base64.StdEncoding.EncodeToString(data),
		Format: format,
	})
}

// SendResumeContext supplies resume context before the interview starts.
func (c *Client) SendResumeContext(resumeText string, parsed map[string]any) error {
	return c.send(protocol.ResumeContextMessage{
		Type:         protocol.TypeResumeContext,
		ResumeText:   resumeText,
		ParsedResume: parsed,
	})
}

// StartInterview signals readiness to begin.
func (c *Client) StartInterview(opts StartOptions) error {
	return c.send(protocol.StartInterviewMessage{
		Type:  protocol.TypeStartInterview,
		Role:  opts.Role,
		Round: opts.Round,
		Mode:  opts.Mode,
	})
}

// RequestEvaluation asks the backend to score the current round.
func (c *Client) RequestEvaluation() error {
	return c.send(protocol.RequestEvaluationMessage{Type: protocol.TypeRequestEvaluation})
}

// PlaybackComplete reports that interviewer audio finished playing, which
// re-arms the backend for the next candidate turn.
func (c *Client) PlaybackComplete() error {
	return c.send(protocol.PlaybackCompleteMessage{Type: protocol.TypePlaybackComplete})
}

// EndSession requests session teardown.
func (c *Client) EndSession() error {
	return c.send(protocol.EndSessionMessage{Type: protocol.TypeEndSession})
}

// RequestProblem asks the backend to assign a coding problem.
func (c *Client) RequestProblem() error {
	return c.send(protocol.RequestProblemMessage{Type: protocol.TypeRequestProblem})
}

// SubmitCode submits candidate code for evaluation.
func (c *Client) SubmitCode(problemID, code, language string) error {
	return c.send(protocol.CodeSubmissionMessage{
		Type:      protocol.TypeCodeSubmission,
		ProblemID: problemID,
		Code:      code,
		Language:  language,
	})
}

// send transmits one command if and only if the connection is open. While
// closed the command is dropped and a recoverable NOT_CONNECTED error is
// both emitted and returned; nothing is queued for later.
func (c *Client) send(v any) error {
	c.mu.Lock()
	if c.state != StateOpen || c.conn == nil {
		c.mu.Unlock()
		err := &ClientError{
			Code:        ErrCodeNotConnected,
			Message:     "connection is not open",
			Recoverable: true,
		}
		c.emitClientError(err)
		return err
	}
	// Writes serialize under the client lock; gorilla allows one writer.
	err := c.conn.WriteJSON(v)
	c.mu.Unlock()

	if err != nil {
		cerr := &ClientError{
			Code:        ErrCodeConnection,
			Message:     "write failed",
			Recoverable: true,
			Err:         err,
		}
		c.emitClientError(cerr)
		return cerr
	}
	return nil
}
