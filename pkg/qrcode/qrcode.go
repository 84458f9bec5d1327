package qrcode

import (
	"bytes"
	"image/color"
	"image/png"

	"github.com/fogleman/gg"
	"github.com/nfnt/resize"
	"github.com/skip2/go-qrcode"
)

// Options controls payment QR rendering.
type Options struct {
	Size      int     // Side of the QR area in pixels
	QuietZone int     // Padding around the QR area in pixels
	LogoPath  string  // Optional logo placed in the center
	LogoScale float64 // Logo side relative to Size (e.g. 0.2)
}

func defaultOptions() Options {
	return Options{
		Size:      512,
		QuietZone: 24,
		LogoScale: 0.2,
	}
}

// Render encodes content (normally a payment link) into a PNG QR code.
// A logo, when configured, is drawn over the center on a white circle,
// relying on the high recovery level to keep the code scannable.
func Render(content string, opts *Options) ([]byte, error) {
	o := defaultOptions()
	if opts != nil {
		if opts.Size > 0 {
			o.Size = opts.Size
		}
		if opts.QuietZone > 0 {
			o.QuietZone = opts.QuietZone
		}
		o.LogoPath = opts.LogoPath
		if opts.LogoScale > 0 {
			o.LogoScale = opts.LogoScale
		}
	}

	code, err := qrcode.New(content, qrcode.High)
	if err != nil {
		return nil, err
	}
	code.DisableBorder = true

	total := o.Size + 2*o.QuietZone
	dc := gg.NewContext(total, total)
	dc.SetColor(color.White)
	dc.Clear()
	dc.DrawImage(code.Image(o.Size), o.QuietZone, o.QuietZone)

	if o.LogoPath != "" {
		logo, errLoad := gg.LoadImage(o.LogoPath)
		if errLoad != nil {
			return nil, errLoad
		}
		logoSide := uint(float64(o.Size) * o.LogoScale)
		logo = resize.Thumbnail(logoSide, logoSide, logo, resize.Lanczos3)

		center := float64(total) / 2
		dc.SetColor(color.White)
		dc.DrawCircle(center, center, float64(logoSide)/2+8)
		dc.Fill()
		dc.DrawImageAnchored(logo, total/2, total/2, 0.5, 0.5)
	}

	var buf bytes.Buffer
	if err = png.Encode(&buf, dc.Image()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
