// Package visualhash computes perceptual image hashes (dHash, pHash) for
// the SIMILAR mode's content branch.
//
// Grounded on original_source/visual_hashing.py, which leans on Pillow,
// numpy, and scipy.fftpack for resize and the 2D DCT. No repo in the
// retrieved pack carries an equivalent Go dependency — grepping the
// example pack for perceptual-hashing or DCT libraries turns up nothing,
// so this package is the one place the transformation falls back to the
// standard library plus golang.org/x/image/draw (already a pack-adjacent
// dependency, used here for the Catmull-Rom resize the original performs
// with Pillow's LANCZOS filter). The DCT-II itself is hand-rolled; no
// ecosystem replacement for it surfaced anywhere in the pack either.
package visualhash

import (
	"errors"
	"fmt"
	"image"
	"math"
	"math/bits"
	"os"
	"path/filepath"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"cerebro/internal/types"
)

// imageExts mirrors original_source/visual_hashing.py's IMAGE_EXTS, minus
// heic/avif: no decoder for either format exists in golang.org/x/image or
// the standard library, and no example repo in the pack carries one.
var imageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".bmp": true,
	".gif": true, ".tif": true, ".tiff": true, ".webp": true,
}

// IsImagePath reports whether path's extension is a supported image type.
func IsImagePath(path string) bool {
	return imageExts[strings.ToLower(filepath.Ext(path))]
}

// HammingDistance counts differing bits between two 64-bit hashes.
func HammingDistance(a, b uint64) int { return bits.OnesCount64(a ^ b) }

var errUnknownAlgorithm = errors.New("unknown similarity algorithm")

// Compute returns the perceptual hash of the image at path, minimized
// over 8 orientation variants when orientationInvariant is set. ok=false
// (with a nil error) means the file could not be decoded as an image,
// matching the original's "return None on decode failure" behavior.
func Compute(path string, algo types.SimilarityAlgorithm, bitmapSize int, orientationInvariant bool) (hash uint64, ok bool, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, false, err
	}
	defer func() { _ = f.Close() }()

	img, _, decodeErr := image.Decode(f)
	if decodeErr != nil {
		return 0, false, nil
	}

	variants := orientVariants(img, orientationInvariant)

	var best uint64
	have := false
	for _, v := range variants {
		var h uint64
		switch algo {
		case types.AlgorithmDHash:
			h = dhash(v)
		case types.AlgorithmPHash:
			h = phash(v, bitmapSize, 8)
		default:
			return 0, false, fmt.Errorf("%w: %s", errUnknownAlgorithm, algo)
		}
		if !have || h < best {
			best = h
			have = true
		}
	}
	return best, have, nil
}

// orientVariants returns the 8 orientation variants original_source's
// compute_dhash/compute_phash minimize over, or just the original image
// when orientationInvariant is false.
func orientVariants(img image.Image, orientationInvariant bool) []image.Image {
	if !orientationInvariant {
		return []image.Image{img}
	}
	flipLR := flipHorizontal(img)
	flipTB := flipVertical(img)
	return []image.Image{
		img,
		rotate90(img),
		rotate180(img),
		rotate270(img),
		flipLR,
		flipTB,
		rotate90(flipLR),
		rotate90(flipTB),
	}
}

// dhash computes the classic 64-bit difference hash from a 9x8 grayscale
// resample: row[x] > row[x+1] for 8 columns across 8 rows, MSB-first.
func dhash(img image.Image) uint64 {
	const w, h = 9, 8
	gray := resizeGray(img, w, h)

	var out uint64
	bit := uint64(1) << 63
	for y := 0; y < h; y++ {
		row := gray[y*w : y*w+w]
		for x := 0; x < w-1; x++ {
			if row[x] > row[x+1] {
				out |= bit
			}
			bit >>= 1
		}
	}
	return out
}

// phash computes a 64-bit perceptual hash via 2D DCT-II: resize to
// bitmapSize^2, take the top-left hashSize x hashSize coefficients, and
// set a bit per coefficient that exceeds the median of those coefficients
// excluding the first row/column (which otherwise swamps the median with
// the DC term and near-DC energy).
func phash(img image.Image, bitmapSize, hashSize int) uint64 {
	if hashSize < 4 {
		hashSize = 4
	}
	if bitmapSize < hashSize*2 {
		bitmapSize = hashSize * 2
	}

	gray := resizeGray(img, bitmapSize, bitmapSize)
	coeff := dct2(gray, bitmapSize, bitmapSize)

	low := make([]float64, hashSize*hashSize)
	for y := 0; y < hashSize; y++ {
		copy(low[y*hashSize:y*hashSize+hashSize], coeff[y*bitmapSize:y*bitmapSize+hashSize])
	}

	med := medianExcludingFirstRowCol(low, hashSize)

	var out uint64
	for i := 0; i < 64 && i < len(low); i++ {
		out <<= 1
		if low[i] > med {
			out |= 1
		}
	}
	// Pad if hashSize*hashSize < 64 (hashSize < 8), matching the Python
	// bit-by-bit left shift over exactly 64 iterations of a flattened,
	// index-truncated bit list.
	for i := len(low); i < 64; i++ {
		out <<= 1
	}
	return out
}

// medianExcludingFirstRowCol computes the median of low[1:,1:] viewed as
// an n x n grid, matching np.median(low[1:, 1:]) in the original.
func medianExcludingFirstRowCol(low []float64, n int) float64 {
	if n < 2 {
		return median(low)
	}
	vals := make([]float64, 0, (n-1)*(n-1))
	for y := 1; y < n; y++ {
		for x := 1; x < n; x++ {
			vals = append(vals, low[y*n+x])
		}
	}
	return median(vals)
}

func median(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := append([]float64(nil), vals...)
	insertionSortFloat(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

func insertionSortFloat(s []float64) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j] < s[j-1]; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

// resizeGray resamples img to w x h using a Catmull-Rom filter (the
// closest draw.Interpolator to Pillow's LANCZOS available without adding
// another dependency) and returns row-major grayscale luminance values.
func resizeGray(img image.Image, w, h int) []float64 {
	dst := image.NewGray(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)

	out := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out[y*w+x] = float64(dst.GrayAt(x, y).Y)
		}
	}
	return out
}

// dct2 computes a 2D DCT-II with orthonormal scaling (matching
// scipy.fftpack.dct(..., norm="ortho") applied along both axes), over a
// w x h grid stored row-major.
func dct2(grid []float64, w, h int) []float64 {
	tmp := make([]float64, w*h)
	for y := 0; y < h; y++ {
		row := dct1(grid[y*w:y*w+w])
		copy(tmp[y*w:y*w+w], row)
	}
	out := make([]float64, w*h)
	col := make([]float64, h)
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			col[y] = tmp[y*w+x]
		}
		result := dct1(col)
		for y := 0; y < h; y++ {
			out[y*w+x] = result[y]
		}
	}
	return out
}

// dct1 computes a 1D, orthonormally-scaled DCT-II of x.
func dct1(x []float64) []float64 {
	n := len(x)
	out := make([]float64, n)
	for k := 0; k < n; k++ {
		var sum float64
		for i := 0; i < n; i++ {
			sum += x[i] * math.Cos(math.Pi/float64(n)*(float64(i)+0.5)*float64(k))
		}
		scale := math.Sqrt(2.0 / float64(n))
		if k == 0 {
			scale = math.Sqrt(1.0 / float64(n))
		}
		out[k] = sum * scale
	}
	return out
}

func rotate90(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, h, w))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dst.Set(h-1-y, x, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return dst
}

func rotate180(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dst.Set(w-1-x, h-1-y, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return dst
}

func rotate270(img image.Image) image.Image {
	return rotate90(rotate180(img))
}

func flipHorizontal(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dst.Set(w-1-x, y, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return dst
}

func flipVertical(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dst.Set(x, h-1-y, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return dst
}
