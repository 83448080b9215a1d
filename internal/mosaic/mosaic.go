// Package mosaic composes deterministic temporal mosaics from completed frame
// batches. Tile placement is row-major chronological: batch index 0 lands in
// the top-left tile, the last index in the bottom-right. Downstream analysis
// depends on this left-to-right, top-to-bottom temporal layout, so the
// ordering is a contract, not an implementation detail.
package mosaic

import (
	"errors"
	"fmt"
	"math"

	"github.com/aidamian/local-guard/internal/domain"
)

// DefaultFrameCount is the frame count of the standard 3x3 mosaic.
const DefaultFrameCount = 9

// ErrInvalidBatchShape indicates the batch cannot be laid out on a square
// grid. This is an invariant violation, not a recoverable runtime fault.
var ErrInvalidBatchShape = errors.New("mosaic: invalid batch shape")

// Image is one composed mosaic in row-major RGBA layout.
type Image struct {
	Width  int
	Height int
	RGBA   []byte
}

// Compose builds a square temporal mosaic from a chronologically ordered
// batch. The frame count must be a perfect square and all frames must share
// geometry. Tile dimensions default to the native frame size; a non-zero
// tileWidth/tileHeight resamples each frame with nearest-neighbor sampling,
// keeping output bytes a pure function of the input batch.
func Compose(frames []domain.Frame, tileWidth, tileHeight int) (Image, error) {
	grid, err := gridSize(len(frames))
	if err != nil {
		return Image{}, err
	}

	first := frames[0]
	for _, frame := range frames {
		if !first.SameGeometry(frame) {
			return Image{}, fmt.Errorf("%w: mixed frame geometry", ErrInvalidBatchShape)
		}
	}

	if tileWidth <= 0 {
		tileWidth = first.Width
	}
	if tileHeight <= 0 {
		tileHeight = first.Height
	}

	width := tileWidth * grid
	height := tileHeight * grid
	out := make([]byte, width*height*4)

	for index, frame := range frames {
		tileRow := index / grid
		tileCol := index % grid
		blitTile(out, width, frame, tileCol*tileWidth, tileRow*tileHeight, tileWidth, tileHeight)
	}

	return Image{Width: width, Height: height, RGBA: out}, nil
}

func gridSize(frameCount int) (int, error) {
	if frameCount == 0 {
		return 0, fmt.Errorf("%w: empty batch", ErrInvalidBatchShape)
	}
	grid := int(math.Sqrt(float64(frameCount)))
	if grid*grid != frameCount {
		return 0, fmt.Errorf("%w: %d frames is not a perfect square", ErrInvalidBatchShape, frameCount)
	}
	return grid, nil
}

// blitTile copies one frame into the mosaic at the tile origin, resampling
// with nearest-neighbor when tile and frame dimensions differ.
func blitTile(dst []byte, dstWidth int, frame domain.Frame, originX, originY, tileWidth, tileHeight int) {
	if tileWidth == frame.Width && tileHeight == frame.Height {
		rowLen := tileWidth * 4
		for y := 0; y < tileHeight; y++ {
			srcOff := y * frame.Width * 4
			dstOff := ((originY+y)*dstWidth + originX) * 4
			copy(dst[dstOff:dstOff+rowLen], frame.RGBA[srcOff:srcOff+rowLen])
		}
		return
	}

	for y := 0; y < tileHeight; y++ {
		srcY := y * frame.Height / tileHeight
		for x := 0; x < tileWidth; x++ {
			srcX := x * frame.Width / tileWidth
			srcOff := (srcY*frame.Width + srcX) * 4
			dstOff := ((originY+y)*dstWidth + originX + x) * 4
			copy(dst[dstOff:dstOff+4], frame.RGBA[srcOff:srcOff+4])
		}
	}
}
