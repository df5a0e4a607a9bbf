// Package audio converts vendor TTS output into the 8kHz G.711 mu-law stream
// the telephony leg carries.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// TelephonyRate is the sample rate of the PCMU track published into the room.
const TelephonyRate = 8000

// ParseWAV returns the PCM payload and sample rate of a 16-bit mono WAV file.
func ParseWAV(b []byte) ([]byte, int, error) {
	if len(b) < 12 || string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" {
		return nil, 0, errors.New("not a RIFF/WAVE file")
	}
	var (
		rate     int
		bits     int
		channels int
	)
	pos := 12
	for pos+8 <= len(b) {
		id := string(b[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(b[pos+4 : pos+8]))
		body := pos + 8
		end := body + size
		if end > len(b) {
			end = len(b)
		}
		switch id {
		case "fmt ":
			if end-body < 16 {
				return nil, 0, errors.New("short fmt chunk")
			}
			channels = int(binary.LittleEndian.Uint16(b[body+2 : body+4]))
			rate = int(binary.LittleEndian.Uint32(b[body+4 : body+8]))
			bits = int(binary.LittleEndian.Uint16(b[body+14 : body+16]))
		case "data":
			if rate == 0 {
				return nil, 0, errors.New("data chunk before fmt chunk")
			}
			if bits != 16 || channels != 1 {
				return nil, 0, fmt.Errorf("unsupported wav format: %d-bit %d channel(s)", bits, channels)
			}
			return b[body:end], rate, nil
		}
		// chunks are word aligned
		pos = body + size + size%2
	}
	return nil, 0, errors.New("no data chunk")
}

// Resample16 converts little-endian 16-bit PCM from one rate to another by
// nearest-sample picking. Good enough for speech headed to an 8kHz leg.
func Resample16(pcm []byte, from, to int) []byte {
	if from == to || from <= 0 || to <= 0 {
		return pcm
	}
	in := len(pcm) / 2
	out := in * to / from
	res := make([]byte, out*2)
	for i := 0; i < out; i++ {
		src := i * from / to
		copy(res[i*2:i*2+2], pcm[src*2:src*2+2])
	}
	return res
}

// EncodeMulaw encodes little-endian 16-bit PCM as G.711 mu-law.
func EncodeMulaw(pcm []byte) []byte {
	out := make([]byte, len(pcm)/2)
	for i := range out {
		out[i] = linearToMulaw(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
	}
	return out
}

const (
	mulawBias = 0x84
	mulawClip = 32635
)

func linearToMulaw(sample int16) byte {
	s := int(sample)
	sign := 0
	if s < 0 {
		s = -s
		sign = 0x80
	}
	if s > mulawClip {
		s = mulawClip
	}
	s += mulawBias

	exponent := 7
	for mask := 0x4000; s&mask == 0 && exponent > 0; mask >>= 1 {
		exponent--
	}
	mantissa := (s >> (exponent + 3)) & 0x0F
	return ^byte(sign | exponent<<4 | mantissa)
}

// ToTelephony turns 16-bit PCM at rate into 8kHz mu-law.
func ToTelephony(pcm []byte, rate int) []byte {
	return EncodeMulaw(Resample16(pcm, rate, TelephonyRate))
}
