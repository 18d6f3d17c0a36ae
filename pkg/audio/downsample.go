package audio

// Downsample reduces data to outputCount values for level metering. The input
// is trimmed to the largest multiple of blockSize, partitioned into
// outputCount equal contiguous chunks, and the maximum value of each chunk is
// kept — peaks, not averages, so short transients stay visible. Every output
// value is clipped to [-1.0, 1.0].
//
// Degenerate inputs (shorter than blockSize, or non-positive parameters)
// yield an empty slice rather than panicking. When fewer than outputCount
// samples survive trimming, outputCount is clamped to that length and one
// value per sample is returned; callers must tolerate fewer than outputCount
// values in these cases.
func Downsample(data []float32, blockSize, outputCount int) []float32 {
	if blockSize <= 0 || outputCount <= 0 {
		return nil
	}
	trimmed := data[:len(data)/blockSize*blockSize]
	if len(trimmed) == 0 {
		return nil
	}
	if outputCount > len(trimmed) {
		outputCount = len(trimmed)
	}
	chunkSize := len(trimmed) / outputCount

	out := make([]float32, outputCount)
	for i := range outputCount {
		max := trimmed[i*chunkSize]
		for _, v := range trimmed[i*chunkSize+1 : (i+1)*chunkSize] {
			if v > max {
				max = v
			}
		}
		out[i] = clip(max)
	}
	return out
}

// clip bounds v to [-1.0, 1.0].
func clip(v float32) float32 {
	if v > 1.0 {
		return 1.0
	}
	if v < -1.0 {
		return -1.0
	}
	return v
}
