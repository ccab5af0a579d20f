// Package audio implements decoding and gapless playback of streamed
// interviewer speech.
package audio

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"time"

	opus "gopkg.in/hraban/opus.v2"
)

// PCM is decoded signed 16-bit little-endian audio.
type PCM struct {
	Data       []byte
	SampleRate int
	Channels   int
}

// Duration returns the playback duration of the buffer.
func (p *PCM) Duration() time.Duration {
	if p.SampleRate <= 0 || p.Channels <= 0 {
		return 0
	}
	frames := len(p.Data) / (2 * p.Channels)
	return time.Duration(frames) * time.Second / time.Duration(p.SampleRate)
}

// maxOpusFrameSamples is the largest opus frame (120ms at 48kHz).
const maxOpusFrameSamples = 5760

// Decoder turns encoded audio chunks into PCM. The opus decoder is stateful
// across packets, so one Decoder serves one stream. Not safe for concurrent
// use.
type Decoder struct {
	sampleRate int
	channels   int

	opusDec *opus.Decoder
	opusBuf []int16
}

// NewDecoder creates a decoder. sampleRate and channels describe raw PCM
// input and configure the opus decoder.
func NewDecoder(sampleRate, channels int) *Decoder {
	if sampleRate <= 0 {
		sampleRate = 24000
	}
	if channels <= 0 {
		channels = 1
	}
	return &Decoder{sampleRate: sampleRate, channels: channels}
}

// DecodeBase64 decodes a base64 payload and then the audio inside it.
func (d *Decoder) DecodeBase64(data, format string) (*PCM, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("decode base64 audio: %w", err)
	}
	return d.Decode(raw, format)
}

// Decode converts one encoded chunk to PCM. Raw PCM passes through, WAV is
// unwrapped, opus packets are decoded. Container formats the client cannot
// unpack (mp3, webm, ogg) return an error so the caller can drop the chunk.
func (d *Decoder) Decode(raw []byte, format string) (*PCM, error) {
	switch format {
	case "pcm", "pcm_s16le", "raw", "":
		return &PCM{Data: raw, SampleRate: d.sampleRate, Channels: d.channels}, nil
	case "wav", "wave":
		return DecodeWAV(raw)
	case "opus":
		return d.decodeOpus(raw)
	default:
		return nil, fmt.Errorf("unsupported audio format %q", format)
	}
}

func (d *Decoder) decodeOpus(packet []byte) (*PCM, error) {
	if d.opusDec == nil {
		dec, err := opus.NewDecoder(d.sampleRate, d.channels)
		if err != nil {
			return nil, fmt.Errorf("create opus decoder: %w", err)
		}
		d.opusDec = dec
		d.opusBuf = make([]int16, maxOpusFrameSamples*d.channels)
	}

	n, err := d.opusDec.Decode(packet, d.opusBuf)
	if err != nil {
		return nil, fmt.Errorf("decode opus packet: %w", err)
	}

	samples := d.opusBuf[:n*d.channels]
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return &PCM{Data: out, SampleRate: d.sampleRate, Channels: d.channels}, nil
}

// DecodeWAV strips a RIFF/WAVE header and returns the PCM payload with the
// rate and channel count the header declares. Only 16-bit PCM is supported.
func DecodeWAV(raw []byte) (*PCM, error) {
	if len(raw) < 12 || string(raw[0:4]) != "RIFF" || string(raw[8:12]) != "WAVE" {
		return nil, fmt.Errorf("not a RIFF/WAVE file")
	}

	var (
		sampleRate int
		channels   int
		haveFmt    bool
	)
	pos := 12
	for pos+8 <= len(raw) {
		id := string(raw[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(raw[pos+4 : pos+8]))
		body := pos + 8
		if body+size > len(raw) {
			size = len(raw) - body
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, fmt.Errorf("wav fmt chunk truncated")
			}
			audioFormat := binary.LittleEndian.Uint16(raw[body : body+2])
			channels = int(binary.LittleEndian.Uint16(raw[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(raw[body+4 : body+8]))
			bits := binary.LittleEndian.Uint16(raw[body+14 : body+16])
			if audioFormat != 1 || bits != 16 {
				return nil, fmt.Errorf("unsupported wav encoding: format=%d bits=%d", audioFormat, bits)
			}
			haveFmt = true
		case "data":
			if !haveFmt {
				return nil, fmt.Errorf("wav data chunk before fmt chunk")
			}
			return &PCM{
				Data:       raw[body : body+size],
				SampleRate: sampleRate,
				Channels:   channels,
			}, nil
		}
		// Chunks are word-aligned.
		pos = body + size
		if size%2 == 1 {
			pos++
		}
	}
	return nil, fmt.Errorf("wav data chunk not found")
}
