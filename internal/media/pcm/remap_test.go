package pcm_test

import (
	"bytes"
	"math"
	"reflect"
	"testing"

	"github.com/go-audio/wav"

	"scdmix/internal/media/pcm"
)

func TestRemapOrderIdentity(t *testing.T) {
	left := []float32{1, 2, 3}
	right := []float32{-1, -2, -3}
	got := pcm.RemapOrder([][]float32{left, right}, nil, 2, 3)
	want := []float32{1, -1, 2, -2, 3, -3}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected interleave: %v", got)
	}
}

func TestRemapOrderTableAndSilence(t *testing.T) {
	a := []float32{1, 2}
	b := []float32{3, 4}
	contributors := [][]float32{a, b}
	got := pcm.RemapOrder(contributors, []int{1, 0, 7}, 3, 2)
	want := []float32{3, 1, 0, 4, 2, 0}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected remap: %v", got)
	}
	// Pure: inputs untouched and repeated calls agree.
	if !reflect.DeepEqual(a, []float32{1, 2}) || !reflect.DeepEqual(b, []float32{3, 4}) {
		t.Fatal("inputs were modified")
	}
	if again := pcm.RemapOrder(contributors, []int{1, 0, 7}, 3, 2); !reflect.DeepEqual(again, got) {
		t.Fatalf("remap is not deterministic: %v vs %v", again, got)
	}
}

func TestRemapOrderPadsShortPlanes(t *testing.T) {
	got := pcm.RemapOrder([][]float32{{0.5}}, nil, 2, 3)
	want := []float32{0.5, 0, 0, 0, 0, 0}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected padding: %v", got)
	}
}

func TestToPCM16Clamps(t *testing.T) {
	got := pcm.ToPCM16([]float32{0, 0.5, -0.5, 1.5, -2, float32(math.NaN())})
	want := []int16{0, 16384, -16384, 32767, -32767, 0}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected conversion: %v", got)
	}
}

func TestEncodeWAVRoundTrip(t *testing.T) {
	samples := []int16{0, 100, -100, 32767, -32768, 5}
	data, err := pcm.EncodeWAV(samples, 44100, 2)
	if err != nil {
		t.Fatalf("EncodeWAV returned error: %v", err)
	}
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		t.Fatal("expected a valid wav file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("decode wav: %v", err)
	}
	if dec.SampleRate != 44100 || dec.NumChans != 2 || dec.BitDepth != 16 {
		t.Fatalf("unexpected header %d Hz %d ch %d bits", dec.SampleRate, dec.NumChans, dec.BitDepth)
	}
	if len(buf.Data) != len(samples) {
		t.Fatalf("expected %d samples, got %d", len(samples), len(buf.Data))
	}
	for i, v := range samples {
		if buf.Data[i] != int(v) {
			t.Fatalf("sample %d: got %d want %d", i, buf.Data[i], v)
		}
	}
}

func TestEncodeWAVRejectsRaggedInput(t *testing.T) {
	if _, err := pcm.EncodeWAV([]int16{1, 2, 3}, 8000, 2); err == nil {
		t.Fatal("expected error for ragged samples")
	}
}
