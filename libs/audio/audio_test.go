package audio

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func pcm(samples ...int16) []byte {
	b := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(b[i*2:], uint16(s))
	}
	return b
}

func wav(rate, bits, channels int, data []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(36+len(data)))
	buf.WriteString("WAVEfmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(channels))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(rate))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(rate*channels*bits/8))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(channels*bits/8))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(bits))
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(data)))
	buf.Write(data)
	return buf.Bytes()
}

func TestEncodeMulaw(t *testing.T) {
	got := EncodeMulaw(pcm(0, 32767, -32768))
	want := []byte{0xFF, 0x80, 0x00}
	if !bytes.Equal(got, want) {
		t.Fatalf("EncodeMulaw = %x, want %x", got, want)
	}
}

func TestResample16(t *testing.T) {
	in := pcm(1, 2, 3, 4, 5, 6)
	out := Resample16(in, 24000, 8000)
	if !bytes.Equal(out, pcm(1, 4)) {
		t.Fatalf("unexpected resample %v", out)
	}
	if got := Resample16(in, 8000, 8000); !bytes.Equal(got, in) {
		t.Fatal("same-rate resample should be a no-op")
	}
}

func TestParseWAV(t *testing.T) {
	data := pcm(10, -10, 20)
	payload, rate, err := ParseWAV(wav(8000, 16, 1, data))
	if err != nil {
		t.Fatalf("ParseWAV: %v", err)
	}
	if rate != 8000 || !bytes.Equal(payload, data) {
		t.Errorf("unexpected payload rate=%d %v", rate, payload)
	}

	if _, _, err := ParseWAV([]byte("not audio")); err == nil {
		t.Error("expected error for non-wav input")
	}
	if _, _, err := ParseWAV(wav(8000, 16, 2, data)); err == nil {
		t.Error("expected error for stereo input")
	}
}
