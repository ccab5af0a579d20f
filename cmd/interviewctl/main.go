// interviewctl connects to an interview session and drives it from the
// terminal: transcripts and status updates print as they stream, interviewer
// speech plays through the local audio device, and commands are read from
// stdin.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"github.com/voxprep/interviewclient/internal/audio"
	"github.com/voxprep/interviewclient/internal/config"
	"github.com/voxprep/interviewclient/internal/logging"
	"github.com/voxprep/interviewclient/internal/protocol"
	"github.com/voxprep/interviewclient/internal/session"
)

func main() {
	sessionID := flag.String("session", "", "interview session id (default: new random id)")
	serverURL := flag.String("server", "", "backend base URL (overrides config)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *serverURL != "" {
		cfg.Server.WSBaseURL = *serverURL
	}
	if *sessionID == "" {
		*sessionID = uuid.NewString()
	}

	logger, err := logging.New(&logging.Config{
		LogDir:  cfg.Logging.Dir,
		Level:   logging.LogLevel(cfg.Logging.Level),
		Console: cfg.Logging.Console,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logging: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	if *serverURL == "" && config.UsingDefaultServerURL() {
		logger.Component("main").Warn().
			Str("ws_base_url", cfg.Server.WSBaseURL).
			Msg("No server URL configured, falling back to local default")
	}

	tokens, err := config.NewFileTokenStore(cfg.Server.TokenFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "token store: %v\n", err)
		os.Exit(1)
	}

	client := session.NewClient(session.Config{
		WSBaseURL:            cfg.Server.WSBaseURL,
		SessionID:            *sessionID,
		ReconnectBaseDelay:   cfg.Session.ReconnectBaseDelay,
		MaxReconnectAttempts: cfg.Session.MaxReconnectAttempts,
		DialTimeout:          cfg.Session.DialTimeout,
		Transcript:           session.TranscriptConfig{MaxEntries: cfg.Session.TranscriptMaxEntries},
	}, tokens, logger.Zerolog())

	sink := audio.NewFFPlaySink(cfg.Audio.SampleRate, cfg.Audio.Channels, logger.Zerolog())
	player := audio.NewPlayer(audio.PlayerConfig{
		SampleRate: cfg.Audio.SampleRate,
		Channels:   cfg.Audio.Channels,
		MaxQueued:  cfg.Audio.MaxQueuedChunks,
	}, sink, logger.Zerolog())
	defer player.Destroy()

	wireListeners(client, player)

	// Hot-reloaded settings apply to the next run; note it so the operator
	// knows a restart is needed.
	config.Watch(func(*config.Config) {
		fmt.Println("[config] file changed; restart to apply")
	})

	fmt.Printf("session %s @ %s\n", *sessionID, cfg.Server.WSBaseURL)
	client.Connect()

	done := make(chan struct{})
	go commandLoop(client, player, done)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sig:
		fmt.Println("\nshutting down")
	case <-done:
	}

	if client.State() == session.StateOpen {
		_ = client.EndSession()
	}
	client.Disconnect()
}

func wireListeners(client *session.Client, player *audio.Player) {
	client.OnConnectionChange(func(connected bool) {
		if connected {
			fmt.Println("[connected]")
		} else {
			fmt.Println("[disconnected]")
		}
	})
	client.OnStatus(func(state protocol.InterviewState) {
		fmt.Printf("[status] %s\n", state)
	})
	client.OnTranscriptDelta(func(m protocol.TranscriptDeltaMessage) {
		fmt.Print(m.Delta)
		if m.IsFinal {
			fmt.Println()
		}
	})
	client.OnTranscript(func(m protocol.TranscriptMessage) {
		fmt.Printf("[%s] %s\n", m.Role, m.Text)
	})
	client.OnAudioChunk(func(m protocol.AudioChunkMessage) {
		player.AddChunk(m.Data, m.Format, m.Sequence, m.IsFinal)
	})
	client.OnAudio(func(m protocol.AudioMessage) {
		player.AddChunk(m.Data, m.Format, 0, true)
	})
	client.OnStreamingStatus(func(m protocol.StreamingStatusMessage) {
		fmt.Printf("[pipeline] %s\n", m.Stage)
	})
	client.OnSessionStarted(func(m protocol.SessionStartedMessage) {
		fmt.Printf("[session started] %s\n", m.SessionID)
	})
	client.OnSessionEnded(func(m protocol.SessionEndedMessage) {
		fmt.Printf("[session ended] %d turns\n", m.TotalTurns)
	})
	client.OnEvaluation(func(m protocol.EvaluationMessage) {
		fmt.Printf("[evaluation] round %d score %.1f passed=%v\n%s\n",
			m.Round, m.Score, m.Passed, m.Feedback)
	})
	client.OnProblem(func(m protocol.ProblemMessage) {
		fmt.Printf("[problem %s] %s (%s)\n%s\n", m.ID, m.Title, m.Difficulty, m.Description)
	})
	client.OnCodeEvaluation(func(m protocol.CodeEvaluationMessage) {
		fmt.Printf("[code evaluation] correct=%v score %.1f\n%s\n", m.Correct, m.Score, m.Feedback)
	})
	client.OnServerError(func(m protocol.ErrorMessage) {
		fmt.Printf("[server error %s] %s\n", m.Code, m.Message)
	})
	client.OnClientError(func(err *session.ClientError) {
		fmt.Printf("[client error %s] %s\n", err.Code, err.Message)
		if err.Code == session.ErrCodeMaxReconnect {
			fmt.Println("giving up; restart to try again")
		}
	})

	// The backend waits for playback confirmation before listening for the
	// next candidate turn.
	player.OnPlaybackEnd(func() {
		_ = client.PlaybackComplete()
	})
	player.OnDecodeError(func(err error) {
		fmt.Printf("[audio] dropped chunk: %v\n", err)
	})
}

func commandLoop(client *session.Client, player *audio.Player, done chan<- struct{}) {
	defer close(done)

	fmt.Println("commands: start [role] [round] | audio <file> | resume <file> | problem | code <id> <lang> <file> | eval | stopaudio | end | quit")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "start":
			opts := session.StartOptions{}
			if len(fields) > 1 {
				opts.Role = fields[1]
			}
			if len(fields) > 2 {
				opts.Round, _ = strconv.Atoi(fields[2])
			}
			_ = client.StartInterview(opts)
		case "audio":
			if len(fields) < 2 {
				fmt.Println("usage: audio <file>")
				continue
			}
			data, err := os.ReadFile(fields[1])
			if err != nil {
				fmt.Printf("read %s: %v\n", fields[1], err)
				continue
			}
			_ = client.SendAudio(data, strings.TrimPrefix(strings.ToLower(filepath.Ext(fields[1])), "."))
		case "resume":
			if len(fields) < 2 {
				fmt.Println("usage: resume <file>")
				continue
			}
			data, err := os.ReadFile(fields[1])
			if err != nil {
				fmt.Printf("read %s: %v\n", fields[1], err)
				continue
			}
			_ = client.SendResumeContext(string(data), nil)
		case "problem":
			_ = client.RequestProblem()
		case "code":
			if len(fields) < 4 {
				fmt.Println("usage: code <problem_id> <language> <file>")
				continue
			}
			src, err := os.ReadFile(fields[3])
			if err != nil {
				fmt.Printf("read %s: %v\n", fields[3], err)
				continue
			}
			_ = client.SubmitCode(fields[1], string(src), fields[2])
		case "eval":
			_ = client.RequestEvaluation()
		case "stopaudio":
			player.Reset()
		case "end":
			_ = client.EndSession()
		case "quit", "exit":
			return
		default:
			fmt.Printf("unknown command %q\n", fields[0])
		}
	}
}
