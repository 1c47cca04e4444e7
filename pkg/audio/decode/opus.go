// ABOUTME: Opus audio decoder
// ABOUTME: Decodes Ogg-encapsulated Opus to float buffers using libopus
package decode

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/harperreed/backspeak/pkg/audio"
	"gopkg.in/hraban/opus.v2"
)

const (
	// libopus always decodes at 48kHz regardless of the input rate field
	opusSampleRate = 48000

	// 120ms at 48kHz, the longest Opus packet
	opusMaxFrameSize = 5760

	opusHeadSignature = "OpusHead"
	opusTagsSignature = "OpusTags"
	opusHeadMinLen    = 19
)

// OpusHead is the identification header of an Ogg Opus stream
type OpusHead struct {
	Version         uint8
	Channels        int
	PreSkip         int
	InputSampleRate uint32
	OutputGain      int16
	MappingFamily   uint8
}

// OpusDecoder decodes Ogg Opus audio
type OpusDecoder struct{}

// NewOpus creates a new Opus decoder
func NewOpus() (Decoder, error) {
	return &OpusDecoder{}, nil
}

// Decode converts Ogg Opus bytes to a buffer
func (d *OpusDecoder) Decode(data []byte) (audio.Buffer, error) {
	reader := newOggReader(bytes.NewReader(data))

	first, err := reader.NextPacket()
	if err != nil {
		return audio.Buffer{}, fmt.Errorf("%w: reading opus head: %v", ErrDecode, err)
	}
	head, err := parseOpusHead(first)
	if err != nil {
		return audio.Buffer{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	dec, err := opus.NewDecoder(opusSampleRate, head.Channels)
	if err != nil {
		return audio.Buffer{}, fmt.Errorf("%w: failed to create opus decoder: %v", ErrDecode, err)
	}

	pcm := make([]float32, opusMaxFrameSize*head.Channels)
	var samples []float32
	for {
		packet, err := reader.NextPacket()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return audio.Buffer{}, fmt.Errorf("%w: ogg: %v", ErrDecode, err)
		}

		if bytes.HasPrefix(packet, []byte(opusTagsSignature)) {
			continue
		}

		n, err := dec.DecodeFloat32(packet, pcm)
		if err != nil {
			return audio.Buffer{}, fmt.Errorf("%w: opus decode error: %v", ErrDecode, err)
		}
		samples = append(samples, pcm[:n*head.Channels]...)
	}

	// Drop the encoder priming samples
	skip := head.PreSkip * head.Channels
	if skip > len(samples) {
		skip = len(samples)
	}
	samples = samples[skip:]

	return deinterleave(samples, head.Channels, opusSampleRate), nil
}

// Close releases decoder resources
func (d *OpusDecoder) Close() error {
	return nil
}

func parseOpusHead(packet []byte) (OpusHead, error) {
	if len(packet) < opusHeadMinLen || string(packet[:8]) != opusHeadSignature {
		return OpusHead{}, errors.New("stream does not start with an OpusHead packet")
	}

	head := OpusHead{
		Version:         packet[8],
		Channels:        int(packet[9]),
		PreSkip:         int(binary.LittleEndian.Uint16(packet[10:12])),
		InputSampleRate: binary.LittleEndian.Uint32(packet[12:16]),
		OutputGain:      int16(binary.LittleEndian.Uint16(packet[16:18])),
		MappingFamily:   packet[18],
	}

	if head.Channels < 1 || head.Channels > 2 {
		return OpusHead{}, fmt.Errorf("unsupported opus channel count %d", head.Channels)
	}
	if head.MappingFamily != 0 {
		return OpusHead{}, fmt.Errorf("unsupported opus channel mapping family %d", head.MappingFamily)
	}

	return head, nil
}
