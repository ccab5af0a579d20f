package audio

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// PlayerState describes the player lifecycle.
type PlayerState string

const (
	PlayerIdle    PlayerState = "idle"
	PlayerPlaying PlayerState = "playing"
	PlayerStopped PlayerState = "stopped"
)

// PlayerConfig configures the streaming player.
type PlayerConfig struct {
	// SampleRate and Channels describe raw PCM chunks (default: 24000, 1).
	SampleRate int
	Channels   int
	// MaxQueued caps the pending chunk queue; the oldest entries are
	// discarded once it is exceeded (default: 100).
	MaxQueued int
}

// DefaultPlayerConfig returns sensible defaults.
func DefaultPlayerConfig() PlayerConfig {
	return PlayerConfig{SampleRate: 24000, Channels: 1, MaxQueued: 100}
}

type queuedChunk struct {
	pcm      *PCM
	sequence int
}

// startDelay holds the first pop of a stream back briefly so chunks that
// arrive together, possibly out of order, are all queued and sorted before
// playback begins.
const startDelay = 10 * time.Millisecond

// Player plays a stream of audio chunks back to back without gaps. Chunks
// may arrive out of order; they are queued by sequence number and written to
// the sink in order. A virtual playhead advances by each chunk's decoded
// duration, so the moment the last sample of the final chunk ends is known
// even though the sink buffers ahead.
//
// Playback completion fires exactly once per stream, when the queue is
// drained, no chunk is in flight, the final marker has been seen, and the
// playhead has been reached. The player then resets itself for the next
// stream.
type Player struct {
	config  PlayerConfig
	sink    Sink
	logger  zerolog.Logger
	decoder *Decoder

	mu         sync.Mutex
	state      PlayerState
	destroyed  bool
	queue      []queuedChunk
	finalSeen  bool
	scheduling bool
	started    bool
	startAt    time.Time
	generation int
	nextPlayAt time.Time

	cbMu        sync.RWMutex
	onEnd       []func()
	onDecodeErr []func(error)
}

// NewPlayer creates a player writing to sink.
func NewPlayer(config PlayerConfig, sink Sink, logger zerolog.Logger) *Player {
	if config.SampleRate <= 0 {
		config.SampleRate = 24000
	}
	if config.Channels <= 0 {
		config.Channels = 1
	}
	if config.MaxQueued <= 0 {
		config.MaxQueued = 100
	}
	return &Player{
		config:  config,
		sink:    sink,
		logger:  logger.With().Str("component", "audio-player").Logger(),
		decoder: NewDecoder(config.SampleRate, config.Channels),
		state:   PlayerIdle,
	}
}

// OnPlaybackEnd registers a listener for stream completion.
func (p *Player) OnPlaybackEnd(fn func()) {
	p.cbMu.Lock()
	defer p.cbMu.Unlock()
	p.onEnd = append(p.onEnd, fn)
}

// OnDecodeError registers a listener for per-chunk decode failures. A failed
// chunk is dropped; the stream keeps playing.
func (p *Player) OnDecodeError(fn func(error)) {
	p.cbMu.Lock()
	defer p.cbMu.Unlock()
	p.onDecodeErr = append(p.onDecodeErr, fn)
}

// State returns the current player state.
func (p *Player) State() PlayerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// QueueLen returns the number of chunks waiting to play.
func (p *Player) QueueLen() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// AddChunk accepts one streamed audio chunk. data is base64-encoded audio in
// the given format; empty data with isFinal set is a bare end-of-stream
// marker. Chunks arriving while the player is stopped are ignored.
func (p *Player) AddChunk(data, format string, sequence int, isFinal bool) {
	p.mu.Lock()
	if p.state == PlayerStopped || p.destroyed {
		p.mu.Unlock()
		return
	}
	if data == "" {
		if isFinal {
			p.finalSeen = true
		}
		p.mu.Unlock()
		p.maybeComplete()
		return
	}
	p.mu.Unlock()

	pcm, err := p.decoder.DecodeBase64(data, format)
	if err != nil {
		p.logger.Warn().Err(err).Int("sequence", sequence).Msg("Dropped undecodable chunk")
		p.emitDecodeError(err)
		if isFinal {
			// The final flag still counts; losing it would stall
			// completion forever.
			p.mu.Lock()
			if p.state != PlayerStopped && !p.destroyed {
				p.finalSeen = true
			}
			p.mu.Unlock()
			p.maybeComplete()
		}
		return
	}

	p.mu.Lock()
	if p.state == PlayerStopped || p.destroyed {
		p.mu.Unlock()
		return
	}
	p.queue = append(p.queue, queuedChunk{pcm: pcm, sequence: sequence})
	sort.SliceStable(p.queue, func(i, j int) bool {
		return p.queue[i].sequence < p.queue[j].sequence
	})
	if over := len(p.queue) - p.config.MaxQueued; over > 0 {
		p.logger.Warn().Int("evicted", over).Msg("Playback queue over capacity")
		p.queue = p.queue[over:]
	}
	if isFinal {
		p.finalSeen = true
	}
	if p.state == PlayerIdle {
		p.state = PlayerPlaying
		p.startAt = time.Now().Add(startDelay)
	}
	if !p.scheduling {
		p.scheduling = true
		gen := p.generation
		go p.playLoop(gen)
	}
	p.mu.Unlock()
}

// playLoop drains the queue in sequence order. Each chunk starts at
// max(playhead, now) and advances the playhead by its duration. The loop
// exits when the queue empties or its generation is superseded.
func (p *Player) playLoop(gen int) {
	for {
		p.mu.Lock()
		if gen != p.generation || p.state != PlayerPlaying {
			if gen == p.generation {
				p.scheduling = false
			}
			p.mu.Unlock()
			return
		}
		if len(p.queue) == 0 {
			p.scheduling = false
			p.mu.Unlock()
			p.maybeComplete()
			return
		}
		if !p.started {
			if wait := time.Until(p.startAt); wait > 0 {
				p.mu.Unlock()
				time.Sleep(wait)
				continue
			}
			p.started = true
		}
		chunk := p.queue[0]
		p.queue = p.queue[1:]

		now := time.Now()
		start := p.nextPlayAt
		if start.Before(now) {
			start = now
		}
		p.nextPlayAt = start.Add(chunk.pcm.Duration())
		sink := p.sink
		p.mu.Unlock()

		if err := sink.Write(chunk.pcm.Data); err != nil {
			if p.staleOrStopped(gen) {
				return
			}
			p.logger.Warn().Err(err).Int("sequence", chunk.sequence).Msg("Audio output write failed")
		}
	}
}

func (p *Player) staleOrStopped(gen int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return gen != p.generation || p.state == PlayerStopped || p.destroyed
}

// maybeComplete fires playback completion if the stream is finished. The
// playhead may still be ahead of the wall clock because the sink buffers, so
// the callback is deferred until the last sample has actually played.
func (p *Player) maybeComplete() {
	p.mu.Lock()
	if p.destroyed || p.state == PlayerStopped || p.scheduling || len(p.queue) > 0 || !p.finalSeen {
		p.mu.Unlock()
		return
	}
	gen := p.generation
	wait := time.Until(p.nextPlayAt)
	p.mu.Unlock()

	if wait > 0 {
		time.AfterFunc(wait, func() { p.finish(gen) })
		return
	}
	p.finish(gen)
}

func (p *Player) finish(gen int) {
	p.mu.Lock()
	if gen != p.generation || p.destroyed || p.state == PlayerStopped ||
		p.scheduling || len(p.queue) > 0 || !p.finalSeen {
		p.mu.Unlock()
		return
	}
	p.resetLocked()
	p.mu.Unlock()

	p.logger.Debug().Msg("Playback complete")
	p.cbMu.RLock()
	fns := p.onEnd
	p.cbMu.RUnlock()
	for _, fn := range fns {
		fn()
	}
}

// resetLocked prepares the player for the next stream.
func (p *Player) resetLocked() {
	p.state = PlayerIdle
	p.queue = nil
	p.finalSeen = false
	p.started = false
	p.nextPlayAt = time.Time{}
	p.generation++
}

// Stop halts playback immediately: anything in flight is cut, the queue is
// discarded, and further chunks are ignored until Reset.
func (p *Player) Stop() {
	p.mu.Lock()
	if p.destroyed || p.state == PlayerStopped {
		p.mu.Unlock()
		return
	}
	p.generation++
	p.scheduling = false
	p.queue = nil
	p.finalSeen = false
	p.started = false
	p.nextPlayAt = time.Time{}
	p.state = PlayerStopped
	p.mu.Unlock()

	if err := p.sink.Reset(); err != nil {
		p.logger.Warn().Err(err).Msg("Sink reset failed")
	}
	p.logger.Debug().Msg("Playback stopped")
}

// Reset returns a stopped player to idle so a fresh stream can play on the
// same instance.
func (p *Player) Reset() {
	p.Stop()
	p.mu.Lock()
	if !p.destroyed {
		p.state = PlayerIdle
	}
	p.mu.Unlock()
}

// Destroy stops playback and releases the sink. The player is unusable
// afterward.
func (p *Player) Destroy() {
	p.Stop()
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return
	}
	p.destroyed = true
	p.mu.Unlock()

	if err := p.sink.Close(); err != nil {
		p.logger.Warn().Err(err).Msg("Sink close failed")
	}
}

func (p *Player) emitDecodeError(err error) {
	p.cbMu.RLock()
	fns := p.onDecodeErr
	p.cbMu.RUnlock()
	for _, fn := range fns {
		fn(err)
	}
}
