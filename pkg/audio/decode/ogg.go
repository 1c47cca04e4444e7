// ABOUTME: Ogg container reader
// ABOUTME: Splits Ogg pages into packets, joining packets continued across pages
package decode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	oggPageSignature = "OggS"
	oggPageHeaderLen = 27

	oggHeaderTypeContinued = 0x01
)

var (
	errBadPageSignature = errors.New("bad ogg page signature")
	errShortPageHeader  = errors.New("short ogg page header")
	errBadContinuation  = errors.New("ogg page continuation without a pending packet")
)

// oggPageHeader is the fixed 27-byte header of an Ogg page
type oggPageHeader struct {
	version         uint8
	headerType      uint8
	granulePosition uint64
	serial          uint32
	index           uint32
	segmentsCount   uint8
}

// oggReader returns Ogg packets from a stream of pages
type oggReader struct {
	stream  io.Reader
	pending []byte
	queue   [][]byte
	partial bool
}

func newOggReader(r io.Reader) *oggReader {
	return &oggReader{stream: r}
}

// NextPacket returns the next complete packet, io.EOF at end of stream
func (o *oggReader) NextPacket() ([]byte, error) {
	for len(o.queue) == 0 {
		if err := o.readPage(); err != nil {
			if errors.Is(err, io.EOF) && o.partial {
				return nil, fmt.Errorf("ogg stream ends inside a packet: %w", io.ErrUnexpectedEOF)
			}
			return nil, err
		}
	}

	packet := o.queue[0]
	o.queue = o.queue[1:]
	return packet, nil
}

func (o *oggReader) readPage() error {
	h := make([]byte, oggPageHeaderLen)
	n, err := io.ReadFull(o.stream, h)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return io.EOF
		}
		if n > 0 {
			return errShortPageHeader
		}
		return err
	}

	if string(h[0:4]) != oggPageSignature {
		return errBadPageSignature
	}

	header := oggPageHeader{
		version:         h[4],
		headerType:      h[5],
		granulePosition: binary.LittleEndian.Uint64(h[6:14]),
		serial:          binary.LittleEndian.Uint32(h[14:18]),
		index:           binary.LittleEndian.Uint32(h[18:22]),
		segmentsCount:   h[26],
	}

	if header.headerType&oggHeaderTypeContinued != 0 {
		if !o.partial {
			return errBadContinuation
		}
	} else if o.partial {
		// A fresh page abandons any unfinished packet
		o.pending = nil
		o.partial = false
	}

	lacing := make([]byte, header.segmentsCount)
	if _, err := io.ReadFull(o.stream, lacing); err != nil {
		return fmt.Errorf("ogg lacing table: %w", err)
	}

	payloadLen := 0
	for _, size := range lacing {
		payloadLen += int(size)
	}
	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(o.stream, payload); err != nil {
		return fmt.Errorf("ogg page payload: %w", err)
	}

	offset := 0
	for _, size := range lacing {
		o.pending = append(o.pending, payload[offset:offset+int(size)]...)
		offset += int(size)
		o.partial = true
		if size < 255 {
			o.queue = append(o.queue, o.pending)
			o.pending = nil
			o.partial = false
		}
	}

	return nil
}
