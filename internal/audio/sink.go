package audio

import (
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"

	"github.com/rs/zerolog"
)

// Sink is the audio output the player schedules chunks onto. Write blocks on
// device backpressure, Reset cuts anything still playing, Close releases the
// device permanently.
type Sink interface {
	Write(pcm []byte) error
	Reset() error
	Close() error
}

// FFPlaySink plays raw PCM through an ffplay subprocess. The process is
// started lazily on first write and restarted after Reset, so a fresh stream
// never inherits buffered audio from the previous one.
type FFPlaySink struct {
	sampleRate int
	channels   int
	logger     zerolog.Logger

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	closed bool
}

// NewFFPlaySink creates a sink for s16le PCM at the given rate.
func NewFFPlaySink(sampleRate, channels int, logger zerolog.Logger) *FFPlaySink {
	return &FFPlaySink{
		sampleRate: sampleRate,
		channels:   channels,
		logger:     logger.With().Str("component", "audio-sink").Logger(),
	}
}

func (s *FFPlaySink) startLocked() error {
	cmd := exec.Command("ffplay",
		"-f", "s16le",
		"-ar", strconv.Itoa(s.sampleRate),
		"-ch_layout", layoutName(s.channels),
		"-nodisp",
		"-loglevel", "quiet",
		"-i", "pipe:0",
	)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open ffplay stdin: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffplay: %w", err)
	}
	s.cmd = cmd
	s.stdin = stdin
	s.logger.Debug().Int("pid", cmd.Process.Pid).Msg("Started ffplay")
	return nil
}

func layoutName(channels int) string {
	if channels == 2 {
		return "stereo"
	}
	return "mono"
}

// Write feeds PCM to the player process, starting it if needed.
func (s *FFPlaySink) Write(pcm []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("sink is closed")
	}
	if s.cmd == nil {
		if err := s.startLocked(); err != nil {
			return err
		}
	}
	if _, err := s.stdin.Write(pcm); err != nil {
		return fmt.Errorf("write pcm: %w", err)
	}
	return nil
}

// Reset kills the current player process, discarding any buffered audio.
// The next Write starts a fresh one.
func (s *FFPlaySink) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	return nil
}

// Close shuts the sink down permanently.
func (s *FFPlaySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	s.closed = true
	return nil
}

func (s *FFPlaySink) stopLocked() {
	if s.cmd == nil {
		return
	}
	_ = s.stdin.Close()
	_ = s.cmd.Process.Kill()
	// Reap the process; ffplay exits promptly once stdin closes.
	go func(cmd *exec.Cmd) { _ = cmd.Wait() }(s.cmd)
	s.cmd = nil
	s.stdin = nil
}
