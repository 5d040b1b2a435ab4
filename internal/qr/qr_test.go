package qr

import (
	"bytes"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func TestPNG(t *testing.T) {
	png, err := PNG("ticket-123", 0)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.HasPrefix(png, pngMagic) {
		t.Fatalf("not a png")
	}
}

func TestDataURI(t *testing.T) {
	uri, err := DataURI("ticket-123")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	b64, ok := strings.CutPrefix(uri, "data:image/png;base64,")
	if !ok {
		t.Fatalf("bad prefix: %.40s", uri)
	}
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.HasPrefix(raw, pngMagic) {
		t.Fatalf("payload is not a png")
	}
}

func TestEmpty(t *testing.T) {
	if _, err := DataURI(""); !errors.Is(err, ErrEmpty) {
		t.Fatalf("err = %v", err)
	}
}
