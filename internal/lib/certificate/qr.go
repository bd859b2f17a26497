package certificate

import (
	"fmt"

	"github.com/skip2/go-qrcode"
)

// QRSize is the side in pixels of the PNG returned to clients.
const QRSize = 256

// QRCode encodes content as a PNG QR code with medium error correction.
func QRCode(content string, size int) ([]byte, error) {
	png, err := qrcode.Encode(content, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR code: %w", err)
	}
	return png, nil
}
