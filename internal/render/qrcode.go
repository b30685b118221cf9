package render

import (
	"image"
	"sync"

	"github.com/skip2/go-qrcode"
)

const defaultQRCodeSizePx = 256

// GenerateQRCodeImage returns a QR code image for the given payload.
// If payload is empty, it returns (nil, nil).
func GenerateQRCodeImage(payload string, sizePx int) (image.Image, error) {
	if payload == "" {
		return nil, nil
	}
	if sizePx <= 0 {
		sizePx = defaultQRCodeSizePx
	}

	qrCode, err := qrcode.New(payload, qrcode.Medium)
	if err != nil {
		return nil, err
	}
	qrCode.BackgroundColor = Background
	qrCode.ForegroundColor = Foreground
	qrCode.DisableBorder = true

	return qrCode.Image(sizePx), nil
}

// QRCache keeps the last generated code so screens redrawn every frame do
// not re-encode an unchanged payload.
type QRCache struct {
	mu      sync.Mutex
	payload string
	sizePx  int
	img     image.Image
}

func (c *QRCache) Image(payload string, sizePx int) (image.Image, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.img != nil && c.payload == payload && c.sizePx == sizePx {
		return c.img, nil
	}
	img, err := GenerateQRCodeImage(payload, sizePx)
	if err != nil {
		return nil, err
	}
	c.payload, c.sizePx, c.img = payload, sizePx, img
	return img, nil
}
