// Package qr renders ticket ids as QR codes for display in the browser.
package qr

import (
	"encoding/base64"
	"errors"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// DefaultSize is the rendered image width in pixels.
const DefaultSize = 200

// ErrEmpty is returned for an empty payload.
var ErrEmpty = errors.New("qr: empty payload")

// PNG encodes payload as a square PNG of size pixels.
func PNG(payload string, size int) ([]byte, error) {
	if payload == "" {
		return nil, ErrEmpty
	}
	if size <= 0 {
		size = DefaultSize
	}
	png, err := qrcode.Encode(payload, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}

// DataURI returns payload as a data:image/png URI suitable for an img src.
func DataURI(payload string) (string, error) {
	png, err := PNG(payload, DefaultSize)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
