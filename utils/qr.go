package utils

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/skip2/go-qrcode"
)

// GenerateQRCode renders a payment deep link as a square PNG of size pixels.
// No minimum is applied here; service.PaymentPathResolver raises size to its
// 300px floor before calling, so scanners on low-end phones can read the code.
func GenerateQRCode(content string, size int) ([]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("qr size must be positive, got %d", size)
	}
	qr, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, qr.Image(size)); err != nil {
		return nil, fmt.Errorf("render qr png: %w", err)
	}
	return buf.Bytes(), nil
}
