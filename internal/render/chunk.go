package render

import (
	"github.com/joshvictor1024/mandelbrot-explorer/internal/fractal"
	"github.com/joshvictor1024/mandelbrot-explorer/pkg/types"
)

const DefaultChunkSize = 1_000_000

// Chunk is the half-open range [Start, End) of linear pixel indices y*width+x.
type Chunk struct {
	Index int
	Start int
	End   int
}

func (c Chunk) Len() int {
	return c.End - c.Start
}

func ChunkCount(totalPixels, chunkSize int) int {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return (totalPixels + chunkSize - 1) / chunkSize
}

// Partition splits [0, totalPixels) into consecutive chunks of chunkSize;
// the last one may be shorter.
func Partition(totalPixels, chunkSize int) []Chunk {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	n := ChunkCount(totalPixels, chunkSize)
	chunks := make([]Chunk, 0, n)
	for i := 0; i < n; i += 1 {
		start := i * chunkSize
		chunks = append(chunks, Chunk{
			Index: i,
			Start: start,
			End:   min(start+chunkSize, totalPixels),
		})
	}
	return chunks
}

// liveCheckInterval is how many pixels a worker computes between checks
// that its session is still wanted.
const liveCheckInterval = 256

// iterateChunk computes the iteration counts of ch. It gives up and reports
// false as soon as live does.
func iterateChunk(req Request, ch Chunk, live func() bool) ([]uint32, bool) {
	data := make([]uint32, ch.Len())
	for i := ch.Start; i < ch.End; i += 1 {
		if (i-ch.Start)%liveCheckInterval == 0 && !live() {
			return nil, false
		}
		p := types.Pointf64{X: float64(i % req.Width), Y: float64(i / req.Width)}
		re, im := req.Viewport.PixelToComplex(req.Width, req.Height, p)
		data[i-ch.Start] = fractal.Iterate(re, im, req.MaxIterations)
	}
	return data, true
}
