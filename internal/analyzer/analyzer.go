// Package analyzer scores how much visual detail a frame carries.
package analyzer

import (
	"image"
	"image/color"
	"math"
)

// DefaultEdgeThreshold is the Sobel gradient magnitude above which a pixel
// counts as an edge.
const DefaultEdgeThreshold = 30.0

// Sobel kernels
var (
	gx = [3][3]int{
		{-1, 0, 1},
		{-2, 0, 2},
		{-1, 0, 1},
	}
	gy = [3][3]int{
		{-1, -2, -1},
		{0, 0, 0},
		{1, 2, 1},
	}
)

// Detail returns the share of pixels in img that sit on an edge, in [0, 1].
// A flat frame scores 0.
func Detail(img image.Image) float64 {
	return DetailThreshold(img, DefaultEdgeThreshold)
}

func DetailThreshold(img image.Image, threshold float64) float64 {
	gray := toGrayscale(img)
	b := gray.Bounds()
	if b.Dx() < 3 || b.Dy() < 3 {
		return 0
	}

	edges := 0
	for y := b.Min.Y + 1; y < b.Max.Y-1; y++ {
		for x := b.Min.X + 1; x < b.Max.X-1; x++ {
			if magnitude(gray, x, y) > threshold {
				edges++
			}
		}
	}
	return float64(edges) / float64((b.Dx()-2)*(b.Dy()-2))
}

func magnitude(gray *image.Gray, x, y int) float64 {
	var sumX, sumY float64
	for ky := -1; ky <= 1; ky++ {
		for kx := -1; kx <= 1; kx++ {
			p := float64(gray.GrayAt(x+kx, y+ky).Y)
			sumX += p * float64(gx[ky+1][kx+1])
			sumY += p * float64(gy[ky+1][kx+1])
		}
	}
	return math.Sqrt(sumX*sumX + sumY*sumY)
}

func toGrayscale(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	gray := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			gray.Set(x, y, color.GrayModel.Convert(img.At(x, y)))
		}
	}
	return gray
}
