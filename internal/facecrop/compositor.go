package facecrop

import (
	"errors"
	"image"
	"image/color"
	"math"

	"github.com/nfnt/resize"
	"golang.org/x/image/draw"
)

// ErrEmptyCrop is returned when the crop box has no area.
var ErrEmptyCrop = errors.New("crop box is empty")

// CircularCrop cuts box out of img, trims it to a centered square, scales it
// to size x size with a Lanczos filter and applies a soft circular alpha mask.
// box is relative to the top-left corner of img.Bounds().
//
// A box that is not square loses pixels on its longer side; it is never padded.
func CircularCrop(img image.Image, box image.Rectangle, size int, blurSigma float64) (*image.NRGBA, error) {
	if size <= 0 {
		return nil, errors.New("output size must be positive")
	}

	bounds := img.Bounds()
	box = box.Add(bounds.Min).Intersect(bounds)
	if box.Empty() {
		return nil, ErrEmptyCrop
	}

	square := SquareCenter(box)

	// Copy the square into its own buffer so the resize never reads outside it.
	region := image.NewNRGBA(image.Rect(0, 0, square.Dx(), square.Dy()))
	draw.Draw(region, region.Bounds(), img, square.Min, draw.Src)

	scaled := resize.Resize(uint(size), uint(size), region, resize.Lanczos3)
	mask := CircleMask(size, blurSigma)

	out := image.NewNRGBA(image.Rect(0, 0, size, size))
	sb := scaled.Bounds()
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			c := color.NRGBAModel.Convert(scaled.At(sb.Min.X+x, sb.Min.Y+y)).(color.NRGBA)
			c.A = mask.GrayAt(x, y).Y
			out.SetNRGBA(x, y, c)
		}
	}

	return out, nil
}

// SquareCenter returns the largest square centered in r.
func SquareCenter(r image.Rectangle) image.Rectangle {
	side := min(r.Dx(), r.Dy())
	left := r.Min.X + (r.Dx()-side)/2
	top := r.Min.Y + (r.Dy()-side)/2
	return image.Rect(left, top, left+side, top+side)
}

// CircleMask returns a size x size mask that is opaque inside the inscribed
// circle and transparent outside, with the edge softened by a gaussian blur.
func CircleMask(size int, sigma float64) *image.Gray {
	radius := float64(size) / 2
	values := make([]float64, size*size)
	for y := 0; y < size; y++ {
		dy := float64(y) + 0.5 - radius
		for x := 0; x < size; x++ {
			dx := float64(x) + 0.5 - radius
			if dx*dx+dy*dy <= radius*radius {
				values[y*size+x] = 255
			}
		}
	}

	if sigma > 0 {
		values = gaussianBlur(values, size, size, sigma)
	}

	mask := image.NewGray(image.Rect(0, 0, size, size))
	for i, v := range values {
		mask.Pix[i] = uint8(math.Round(math.Max(0, math.Min(255, v))))
	}
	return mask
}

// gaussianBlur applies a separable gaussian to a single-channel float buffer.
// Samples outside the buffer repeat the nearest edge value.
func gaussianBlur(src []float64, width, height int, sigma float64) []float64 {
	kernel := gaussianKernel(sigma)
	half := len(kernel) / 2

	tmp := make([]float64, len(src))
	for y := 0; y < height; y++ {
		row := src[y*width : (y+1)*width]
		for x := 0; x < width; x++ {
			var sum float64
			for k, w := range kernel {
				sx := clamp(x+k-half, 0, width-1)
				sum += row[sx] * w
			}
			tmp[y*width+x] = sum
		}
	}

	dst := make([]float64, len(src))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var sum float64
			for k, w := range kernel {
				sy := clamp(y+k-half, 0, height-1)
				sum += tmp[sy*width+x] * w
			}
			dst[y*width+x] = sum
		}
	}
	return dst
}

// gaussianKernel returns normalized weights covering three standard deviations.
func gaussianKernel(sigma float64) []float64 {
	half := int(math.Ceil(3 * sigma))
	kernel := make([]float64, 2*half+1)
	var total float64
	for i := range kernel {
		d := float64(i - half)
		kernel[i] = math.Exp(-(d * d) / (2 * sigma * sigma))
		total += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= total
	}
	return kernel
}
