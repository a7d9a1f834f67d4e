package service

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	maxMealImageBytes     = 10 << 20
	maxMealImageDimension = 1024
	maxMealImagePixels    = 40_000_000
	mealImageJPEGQuality  = 85
)

// ErrInvalidImage 上传内容不是可识别的 JPEG/PNG/WebP 图片
var ErrInvalidImage = errors.New("invalid image")

// normalizeMealImage 解码图片，长边缩放到 1024 像素以内并重新编码为 JPEG
func normalizeMealImage(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty upload", ErrInvalidImage)
	}
	if len(data) > maxMealImageBytes {
		return nil, fmt.Errorf("%w: image exceeds %d bytes", ErrInvalidImage, maxMealImageBytes)
	}

	// 先读取头部尺寸，避免解码超大位图
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidImage)
	}
	if int64(cfg.Width)*int64(cfg.Height) > maxMealImagePixels {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrInvalidImage, cfg.Width, cfg.Height, maxMealImagePixels)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidImage)
	}

	var out image.Image = src
	if longest := max(width, height); longest > maxMealImageDimension {
		scale := float64(maxMealImageDimension) / float64(longest)
		w := max(1, int(float64(width)*scale))
		h := max(1, int(float64(height)*scale))
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
		out = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: mealImageJPEGQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
