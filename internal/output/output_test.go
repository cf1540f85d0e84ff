package output

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"
)

func TestFileSinkWritesUnderRoot(t *testing.T) {
	root := t.TempDir()
	sink := &FileSink{Root: root}

	if err := sink.Emit("music/bgm/a.scd", []byte("one")); err != nil {
		t.Fatalf("Emit failed: %v", err)
	}
	if err := sink.Emit("b.scd", []byte("two")); err != nil {
		t.Fatalf("Emit failed: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(root, "music", "bgm", "a.scd"))
	if err != nil || string(got) != "one" {
		t.Fatalf("unexpected content %q (%v)", got, err)
	}
	written := sink.Written()
	if len(written) != 2 || written[1] != filepath.Join(root, "b.scd") {
		t.Fatalf("unexpected written list %v", written)
	}
}

func TestFileSinkRejectsEscapingPaths(t *testing.T) {
	sink := &FileSink{Root: t.TempDir()}
	for _, path := range []string{"../x.scd", "a/../../x.scd", "/etc/x.scd"} {
		if err := sink.Emit(path, []byte("x")); !errors.Is(err, ErrOutsideRoot) {
			t.Fatalf("%s: expected ErrOutsideRoot, got %v", path, err)
		}
	}
	if err := sink.Emit("  ", nil); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestFileSinkDryRun(t *testing.T) {
	root := t.TempDir()
	sink := &FileSink{Root: root, DryRun: true}
	if err := sink.Emit("a.scd", []byte("x")); err != nil {
		t.Fatalf("Emit failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "a.scd")); !os.IsNotExist(err) {
		t.Fatalf("dry run should not write, stat err=%v", err)
	}
	if len(sink.Written()) != 1 {
		t.Fatal("dry run should still record destinations")
	}
}

func TestFileSinkWithoutRootKeepsPath(t *testing.T) {
	sink := &FileSink{}
	dest, err := sink.Resolve("/tmp/x/../y.scd")
	if err != nil || dest != "/tmp/y.scd" {
		t.Fatalf("unexpected resolution %q %v", dest, err)
	}
}

func TestAcquireLockIsExclusive(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")
	first, err := AcquireLock(dir)
	if err != nil {
		t.Fatalf("AcquireLock failed: %v", err)
	}
	if _, err := AcquireLock(dir); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	if err := first.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	second, err := AcquireLock(dir)
	if err != nil {
		t.Fatalf("expected lock after release, got %v", err)
	}
	_ = second.Release()
	_ = second.Release()
}

func TestWritePreview(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "previews")
	dest, err := WritePreview(dir, "music/bgm_001.scd", []float32{0.5, -0.5, 0.25, -0.25}, 8000, 2)
	if err != nil {
		t.Fatalf("WritePreview failed: %v", err)
	}
	if dest != filepath.Join(dir, "bgm_001.wav") {
		t.Fatalf("unexpected preview path %q", dest)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	dec := wav.NewDecoder(bytes.NewReader(data))
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("decode preview: %v", err)
	}
	if dec.SampleRate != 8000 || dec.NumChans != 2 || len(buf.Data) != 4 {
		t.Fatalf("unexpected preview format %d Hz %d ch %d samples", dec.SampleRate, dec.NumChans, len(buf.Data))
	}
}
