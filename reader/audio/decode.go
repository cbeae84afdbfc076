package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"
)

// ErrUnsupportedFormat is returned for payloads that are neither MP3 nor
// PCM WAV.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Decode sniffs data and decodes MP3 or WAV into a clip.
func Decode(data []byte) (*Clip, error) {
	switch {
	case len(data) < 4:
		return nil, fmt.Errorf("%w: %d bytes", ErrUnsupportedFormat, len(data))
	case isWAV(data):
		return DecodeWAV(data)
	case isMP3(data):
		return DecodeMP3(bytes.NewReader(data))
	default:
		return nil, ErrUnsupportedFormat
	}
}

func isWAV(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE"
}

func isMP3(data []byte) bool {
	if string(data[0:3]) == "ID3" {
		return true
	}
	// frame sync: 11 set bits
	return data[0] == 0xFF && data[1]&0xE0 == 0xE0
}

// DecodeMP3 decodes an MP3 stream. The decoder always yields 16-bit stereo.
func DecodeMP3(r io.Reader) (*Clip, error) {
	d, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("mp3: %w", err)
	}
	raw, err := io.ReadAll(d)
	if err != nil {
		return nil, fmt.Errorf("mp3: %w", err)
	}
	return NewClipFromPCM(raw, PCMFormat{SampleRate: d.SampleRate(), Channels: 2, BitDepth: 16})
}

// DecodeWAV decodes a PCM WAV file.
func DecodeWAV(data []byte) (*Clip, error) {
	if !isWAV(data) {
		return nil, fmt.Errorf("wav: %w", ErrUnsupportedFormat)
	}

	var format PCMFormat
	var haveFormat bool
	off := 12
	for off+8 <= len(data) {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4:]))
		body := off + 8
		end := min(body+size, len(data))

		switch id {
		case "fmt ":
			if end-body < 16 {
				return nil, errors.New("wav: short fmt chunk")
			}
			if tag := binary.LittleEndian.Uint16(data[body:]); tag != 1 {
				return nil, fmt.Errorf("wav: compressed format %d: %w", tag, ErrUnsupportedFormat)
			}
			format = PCMFormat{
				Channels:   int(binary.LittleEndian.Uint16(data[body+2:])),
				SampleRate: int(binary.LittleEndian.Uint32(data[body+4:])),
				BitDepth:   int(binary.LittleEndian.Uint16(data[body+14:])),
			}
			haveFormat = true
		case "data":
			if !haveFormat {
				return nil, errors.New("wav: data chunk before fmt chunk")
			}
			return NewClipFromPCM(data[body:end], format)
		}

		// chunks are word aligned
		off = body + size + size%2
	}
	return nil, errors.New("wav: no data chunk")
}
