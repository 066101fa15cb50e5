package main

import (
	"image"
	"image/color"
)

// testPattern renders a gradient with a moving bar so the video path can
// be exercised without a camera.
type testPattern struct {
	frame int
}

func newTestPattern() *testPattern {
	return &testPattern{}
}

func (p *testPattern) Frame() (image.Image, error) {
	const w, h = 640, 480
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	p.frame++
	bar := (p.frame * 16) % w
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.RGBA{R: uint8(x * 255 / w), G: uint8(y * 255 / h), B: 64, A: 255}
			if x >= bar && x < bar+16 {
				c = color.RGBA{R: 255, G: 255, B: 255, A: 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img, nil
}

func (p *testPattern) Close() error {
	return nil
}
