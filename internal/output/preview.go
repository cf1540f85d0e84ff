package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"scdmix/internal/media/pcm"
)

// PreviewPath returns the WAV preview location for an output path.
func PreviewPath(dir, outputPath string) string {
	base := filepath.Base(filepath.FromSlash(outputPath))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, base+".wav")
}

// WritePreview stores merged samples as a 16-bit WAV file for listening.
func WritePreview(dir, outputPath string, samples []float32, rate, channels int) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create preview dir: %w", err)
	}
	dest := PreviewPath(dir, outputPath)
	if err := pcm.WriteWAV(dest, samples, rate, channels); err != nil {
		return "", fmt.Errorf("write preview %s: %w", dest, err)
	}
	return dest, nil
}
