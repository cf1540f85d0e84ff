package pcm

import "math"

// ExtractChannel returns one channel of an interleaved buffer.
func ExtractChannel(interleaved []float32, channels, channel int) []float32 {
	if channels <= 0 {
		return nil
	}
	frames := len(interleaved) / channels
	out := make([]float32, frames)
	for i := range out {
		out[i] = interleaved[i*channels+channel]
	}
	return out
}

// RemapOrder interleaves contributor planes into outChannels channels. Output
// channel o takes contributor table[o], or contributor o when table is empty.
// Missing contributors and short planes produce silence. frames fixes the
// output length.
func RemapOrder(contributors [][]float32, table []int, outChannels, frames int) []float32 {
	if outChannels <= 0 || frames <= 0 {
		return []float32{}
	}
	out := make([]float32, outChannels*frames)
	for o := range outChannels {
		idx := o
		if len(table) > 0 {
			idx = -1
			if o < len(table) {
				idx = table[o]
			}
		}
		if idx < 0 || idx >= len(contributors) {
			continue
		}
		plane := contributors[idx]
		n := min(frames, len(plane))
		for f := 0; f < n; f++ {
			out[f*outChannels+o] = plane[f]
		}
	}
	return out
}

// ToPCM16 converts float samples to signed 16-bit, clamping to [-1, 1].
func ToPCM16(samples []float32) []int16 {
	out := make([]int16, len(samples))
	for i, v := range samples {
		switch {
		case v != v: // NaN
			out[i] = 0
		case v >= 1:
			out[i] = math.MaxInt16
		case v <= -1:
			out[i] = -math.MaxInt16
		default:
			out[i] = int16(math.Round(float64(v) * math.MaxInt16))
		}
	}
	return out
}
