package imaging

import (
	"image"
	"image/color"
)

// atkinson holds the neighbour offsets that each receive 1/8 of a pixel's
// quantization error. The remaining 2/8 is dropped.
//
//	+-------+-------+-------+-------+
//	|       | Curr. |  1/8  |  1/8  |
//	+-------|-------|-------|-------|
//	|  1/8  |  1/8  |  1/8  |       |
//	+-------|-------|-------|-------|
//	|       |  1/8  |       |       |
//	+-------+-------+-------+-------+
var atkinson = [6]image.Point{
	{X: 1, Y: 0}, {X: 2, Y: 0},
	{X: -1, Y: 1}, {X: 0, Y: 1}, {X: 1, Y: 1},
	{X: 0, Y: 2},
}

// ditherLattice diffuses error over a lattice indexed [x][y] that holds
// each grey level packed into 24 bits (l * 0x010101). A pixel turns white
// when its accumulated value is above half of 0xFFFFFF. grey must have a
// zero origin.
func ditherLattice(grey *image.NRGBA) *image.NRGBA {
	w, h := grey.Rect.Dx(), grey.Rect.Dy()

	lattice := make([][]float64, w)
	for x := range lattice {
		col := make([]float64, h)
		for y := range col {
			col[y] = float64(grey.Pix[grey.PixOffset(x, y)]) * 0x010101
		}
		lattice[x] = col
	}

	const threshold = 0xFFFFFF * 0.5
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			old := lattice[x][y]
			var level uint8
			var quantized float64
			if old > threshold {
				level, quantized = 255, 0xFFFFFF
			}
			diffusion := (old - quantized) / 8
			for _, o := range atkinson {
				nx, ny := x+o.X, y+o.Y
				if nx < 0 || nx >= w || ny >= h {
					continue
				}
				lattice[nx][ny] += diffusion
			}
			setBW(out, x, y, level, grey.Pix[grey.PixOffset(x, y)+3])
		}
	}
	return out
}

// ditherPacked diffuses error over a row-major buffer of interleaved
// [grey, alpha] pairs. A pixel turns black when its accumulated grey is at
// most 128.
func ditherPacked(grey image.Image) *image.NRGBA {
	bounds := grey.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	pixels := make([]float64, 2*w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBAModel.Convert(grey.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
			i := 2 * (y*w + x)
			pixels[i] = float64(c.R)
			pixels[i+1] = float64(c.A)
		}
	}

	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := 2 * (y*w + x)
			var level uint8 = 255
			if pixels[i] <= 128 {
				level = 0
			}
			diffusion := (pixels[i] - float64(level)) / 8
			for _, o := range atkinson {
				nx, ny := x+o.X, y+o.Y
				if nx < 0 || nx >= w || ny >= h {
					continue
				}
				pixels[2*(ny*w+nx)] += diffusion
			}
			setBW(out, x, y, level, uint8(pixels[i+1]))
		}
	}
	return out
}

func setBW(img *image.NRGBA, x, y int, level, alpha uint8) {
	i := img.PixOffset(x, y)
	img.Pix[i] = level
	img.Pix[i+1] = level
	img.Pix[i+2] = level
	img.Pix[i+3] = alpha
}
