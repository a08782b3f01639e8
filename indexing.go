package dggs

// chunkDimProjection maps one chunk of a one-dimensional array onto the
// output slice
type chunkDimProjection struct {
	// Index of chunk.
	DimChunkIX int
	// Number of items taken from the start of the chunk.
	DimChunkSel int
	// Offset of the first item in the output.
	DimOutSel int
}

// chunkProjections covers an array of length items split into chunks of
// chunkLen items. The last chunk may be partially used.
func chunkProjections(length, chunkLen int) []chunkDimProjection {
	if length <= 0 || chunkLen <= 0 {
		return nil
	}
	projs := make([]chunkDimProjection, 0, (length+chunkLen-1)/chunkLen)
	for ix, off := 0, 0; off < length; ix, off = ix+1, off+chunkLen {
		projs = append(projs, chunkDimProjection{
			DimChunkIX:  ix,
			DimChunkSel: min(chunkLen, length-off),
			DimOutSel:   off,
		})
	}
	return projs
}
