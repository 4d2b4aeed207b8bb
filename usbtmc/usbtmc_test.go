package usbtmc

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestBTagGenSkipsZero(t *testing.T) {
	var g bTagGen
	if got := g.next(); got != 1 {
		t.Errorf("first tag = %d, want 1", got)
	}
	g.value = 255
	if got := g.next(); got != 1 {
		t.Errorf("tag after wrap = %d, want 1 (zero is reserved)", got)
	}
}

func TestBulkOutHeader(t *testing.T) {
	hdr := encBulkOutHeader(7, 300)
	if hdr[0] != msgDevDepOut {
		t.Errorf("MsgID %#02x", hdr[0])
	}
	if hdr[1] != 7 || hdr[2] != invbTag(7) {
		t.Errorf("bTag pair %#02x %#02x", hdr[1], hdr[2])
	}
	if got := binary.LittleEndian.Uint32(hdr[4:8]); got != 300 {
		t.Errorf("transferSize %d", got)
	}
	if hdr[8] != 0x01 {
		t.Error("EOM bit not set")
	}
}

func TestBulkInHeaderTerminator(t *testing.T) {
	term := byte('\n')
	hdr := encBulkInHeader(3, 1024, &term)
	if hdr[0] != msgRequestDevDepIn {
		t.Errorf("MsgID %#02x", hdr[0])
	}
	if hdr[8] != 0x02 || hdr[9] != '\n' {
		t.Errorf("terminator bytes %#02x %#02x", hdr[8], hdr[9])
	}
	hdr = encBulkInHeader(4, 1024, nil)
	if hdr[8] != 0x00 || hdr[9] != 0x00 {
		t.Error("terminator should be disabled")
	}
}

func TestDecodeBulkIn(t *testing.T) {
	payload := []byte("RIGOL TECHNOLOGIES,DS1054Z\n")
	raw := make([]byte, headerLen, headerLen+len(payload)+2)
	raw[0] = msgDevDepIn
	raw[1] = 5
	raw[2] = invbTag(5)
	binary.LittleEndian.PutUint32(raw[4:8], uint32(len(payload)))
	raw = append(raw, payload...)
	raw = append(raw, 0, 0) // device pads to its packet size

	got, err := decBulkInHeader(raw)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("payload %q", got)
	}
}

func TestDecodeBulkInRejects(t *testing.T) {
	good := func() []byte {
		raw := make([]byte, headerLen+4)
		raw[0] = msgDevDepIn
		raw[1] = 9
		raw[2] = invbTag(9)
		binary.LittleEndian.PutUint32(raw[4:8], 4)
		return raw
	}

	short := good()[:8]
	if _, err := decBulkInHeader(short); err == nil {
		t.Error("short response should fail")
	}

	wrongID := good()
	wrongID[0] = 0x7f
	if _, err := decBulkInHeader(wrongID); err == nil {
		t.Error("wrong MsgID should fail")
	}

	badTag := good()
	badTag[2] = 0x00
	if _, err := decBulkInHeader(badTag); err == nil {
		t.Error("mismatched bTagInverse should fail")
	}

	truncated := good()
	binary.LittleEndian.PutUint32(truncated[4:8], 500)
	if _, err := decBulkInHeader(truncated); err == nil {
		t.Error("overlong transferSize should fail")
	}
}
