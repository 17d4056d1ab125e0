package scan

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/mamadbah2/epharmacy/internal/apperr"
)

const (
	DefaultThreshold  = 0.4
	DefaultKernelSize = 3
)

// NormalizerOptions configures the binarization transform.
type NormalizerOptions struct {
	Threshold  float64
	KernelSize int
}

// Validate checks the threshold is within [0,1] and the kernel is odd and positive.
func (o NormalizerOptions) Validate() error {
	if o.Threshold < 0 || o.Threshold > 1 {
		return apperr.Validation(fmt.Sprintf("threshold must be within [0,1], got %v", o.Threshold))
	}
	if o.KernelSize < 1 || o.KernelSize%2 == 0 {
		return apperr.Validation(fmt.Sprintf("kernel size must be an odd integer >= 1, got %d", o.KernelSize))
	}
	return nil
}

// Mask is a binary image where 1 marks text (foreground) and 0 background.
type Mask struct {
	Width  int
	Height int
	Pix    []uint8
}

func newMask(w, h int) *Mask {
	return &Mask{Width: w, Height: h, Pix: make([]uint8, w*h)}
}

// At returns the mask value at (x, y).
func (m *Mask) At(x, y int) uint8 { return m.Pix[y*m.Width+x] }

// Normalizer converts photos into high-contrast images suitable for OCR.
// It holds no mutable state and is safe for concurrent use.
type Normalizer struct {
	opts NormalizerOptions
}

// NewNormalizer validates opts and returns a Normalizer.
func NewNormalizer(opts NormalizerOptions) (*Normalizer, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Normalizer{opts: opts}, nil
}

// Normalize decodes data, binarizes and thickens the text, and re-encodes as PNG.
func (n *Normalizer) Normalize(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, apperr.InvalidImage("image is empty", nil)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperr.InvalidImage("image could not be decoded", err)
	}

	out := n.Transform(img)

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("encode processed image: %w", err)
	}
	return buf.Bytes(), nil
}

// Transform runs the pixel pipeline on a decoded image. Every output pixel
// is either 0 (text) or 255 (background).
func (n *Normalizer) Transform(img image.Image) *image.Gray {
	mask := Binarize(img, n.opts.Threshold)
	mask = Dilate(mask, n.opts.KernelSize)
	return mask.Gray()
}

// Binarize reduces img to the channel mean, scales it to [0,1] and marks
// every pixel at or below threshold as text. Alpha is ignored.
func Binarize(img image.Image, threshold float64) *Mask {
	b := img.Bounds()
	mask := newMask(b.Dx(), b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := (y - b.Min.Y) * mask.Width
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			mean := (float64(c.R) + float64(c.G) + float64(c.B)) / 3 / 255
			if mean <= threshold {
				mask.Pix[row+x-b.Min.X] = 1
			}
		}
	}
	return mask
}

// Dilate grows the foreground with a size x size square structuring element.
// Pixels outside the image count as background. A size of 1 returns an
// identical copy.
func Dilate(m *Mask, size int) *Mask {
	out := newMask(m.Width, m.Height)
	if size <= 1 {
		copy(out.Pix, m.Pix)
		return out
	}
	r := size / 2

	// The square element is separable into a horizontal and a vertical pass.
	horiz := newMask(m.Width, m.Height)
	for y := 0; y < m.Height; y++ {
		row := y * m.Width
		for x := 0; x < m.Width; x++ {
			lo, hi := max(0, x-r), min(m.Width-1, x+r)
			for i := lo; i <= hi; i++ {
				if m.Pix[row+i] == 1 {
					horiz.Pix[row+x] = 1
					break
				}
			}
		}
	}
	for y := 0; y < m.Height; y++ {
		lo, hi := max(0, y-r), min(m.Height-1, y+r)
		for x := 0; x < m.Width; x++ {
			for j := lo; j <= hi; j++ {
				if horiz.Pix[j*m.Width+x] == 1 {
					out.Pix[y*m.Width+x] = 1
					break
				}
			}
		}
	}
	return out
}

// Gray inverts the mask back so text is dark and rescales to 8 bits.
func (m *Mask) Gray() *image.Gray {
	g := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for i, v := range m.Pix {
		if v == 1 {
			g.Pix[i] = 0
		} else {
			g.Pix[i] = 255
		}
	}
	return g
}
