package deviceio

import (
	"bytes"
	"context"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"time"

	"github.com/kandev/androidctl/internal/common/constants"
	v1 "github.com/kandev/androidctl/pkg/api/v1"
)

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// Screenshot executes `adb [-s id] exec-out screencap -p` and parses the
// IHDR chunk for (width, height). An empty, non-PNG, or fully-opaque-black
// payload is treated as a protected-surface capture: the result carries
// Sensitive=true and a synthesized black PNG of the default dimensions so
// downstream RelPoint math always has non-zero dimensions.
func (d *DeviceIO) Screenshot(ctx context.Context, deviceID string) (v1.Screenshot, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.ScreenshotTimeout)
	defer cancel()

	raw, err := d.run(ctx, deviceID, "exec-out", "screencap", "-p")
	if err != nil {
		return v1.Screenshot{}, err
	}

	width, height, ok := parseIHDR(raw)
	now := time.Now()
	if !ok {
		return sensitiveScreenshot(now), nil
	}
	if isOpaqueBlack(raw) {
		return sensitiveScreenshot(now), nil
	}

	return v1.Screenshot{
		PNG:        raw,
		Width:      width,
		Height:     height,
		Sensitive:  false,
		CapturedAt: now,
	}, nil
}

// parseIHDR reads width/height directly out of the PNG IHDR chunk, which
// always immediately follows the 8-byte signature: 4-byte length, 4-byte
// type "IHDR", 4-byte width, 4-byte height.
func parseIHDR(data []byte) (width, height int, ok bool) {
	if len(data) < 8+8+8 {
		return 0, 0, false
	}
	if !bytes.Equal(data[:8], pngSignature) {
		return 0, 0, false
	}
	if string(data[12:16]) != "IHDR" {
		return 0, 0, false
	}
	w := binary.BigEndian.Uint32(data[16:20])
	h := binary.BigEndian.Uint32(data[20:24])
	if w == 0 || h == 0 {
		return 0, 0, false
	}
	return int(w), int(h), true
}

// isOpaqueBlack decodes the PNG and reports whether it is fully black.
// Android returns such a frame (rather than failing outright) for some
// protected surfaces, so a successful decode is not sufficient evidence of
// a usable screenshot.
func isOpaqueBlack(data []byte) bool {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return false
	}
	bounds := img.Bounds()
	// Sampling every pixel of a full-resolution screenshot is wasteful; a
	// protected surface is uniformly black, so a coarse grid is enough to
	// detect it while catching real screenshots (which are never exactly
	// black on every sampled pixel) with overwhelming probability.
	const stride = 17
	for y := bounds.Min.Y; y < bounds.Max.Y; y += stride {
		for x := bounds.Min.X; x < bounds.Max.X; x += stride {
			r, g, b, a := img.At(x, y).RGBA()
			if r != 0 || g != 0 || b != 0 || a != 0xffff {
				return false
			}
		}
	}
	return true
}

func sensitiveScreenshot(capturedAt time.Time) v1.Screenshot {
	return v1.Screenshot{
		PNG:        encodeBlackPNG(v1.DefaultSensitiveWidth, v1.DefaultSensitiveHeight),
		Width:      v1.DefaultSensitiveWidth,
		Height:     v1.DefaultSensitiveHeight,
		Sensitive:  true,
		CapturedAt: capturedAt,
	}
}

func encodeBlackPNG(width, height int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	black := color.RGBA{A: 0xff}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, black)
		}
	}
	var buf bytes.Buffer
	// encoding here cannot fail: buf is an in-memory writer and img is a
	// well-formed image.Image built above.
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}
