package resolve_test

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"scdmix/internal/manifest"
	"scdmix/internal/resolve"
)

func compiledSources(t *testing.T, sources map[string]manifest.SourceItem) map[string]manifest.SourceItem {
	t.Helper()
	cfg := manifest.Config{Items: []manifest.Item{{Source: sources}}}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate sources: %v", err)
	}
	return cfg.Items[0].Source
}

func slot(pattern string) manifest.InputFile { return manifest.InputFile{Pattern: pattern} }

func TestResolveSingleFlac(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "track.flac"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.Mkdir(filepath.Join(dir, "nested.flac"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	sources := compiledSources(t, map[string]manifest.SourceItem{
		"vocal": {InputFiles: [][]manifest.InputFile{{slot("*.flac")}}},
	})
	r := resolve.New(sources)

	ok, err := r.Resolve("vocal", "cd1", dir)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if !ok {
		t.Fatal("expected vocal to resolve")
	}
	want := []string{filepath.Join(dir, "track.flac")}
	if got := r.Paths("vocal"); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected paths: got %v want %v", got, want)
	}
}

func TestResolveMultiFileGroupNeedsEverySlot(t *testing.T) {
	files := []string{"theme_L.wav", "theme_R.wav", "other.wav"}
	lister := resolve.ListerFunc(func(string) ([]string, error) { return files, nil })
	sources := compiledSources(t, map[string]manifest.SourceItem{
		"split":   {InputFiles: [][]manifest.InputFile{{slot("*_L.wav"), slot("*_R.wav")}}},
		"partial": {InputFiles: [][]manifest.InputFile{{slot("*_L.wav"), slot("*_C.wav")}}},
	})
	r := resolve.New(sources, resolve.WithLister(lister))

	ok, err := r.Resolve("split", "cd1", "/music")
	if err != nil || !ok {
		t.Fatalf("expected split to resolve, ok=%v err=%v", ok, err)
	}
	want := []string{filepath.Join("/music", "theme_L.wav"), filepath.Join("/music", "theme_R.wav")}
	if got := r.Paths("split"); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected paths: %v", got)
	}

	ok, err = r.Resolve("partial", "cd1", "/music")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if ok {
		t.Fatal("expected partial group to fail")
	}
	if r.Resolved("partial") {
		t.Fatal("failed resolution must not record paths")
	}
	if got := r.Unresolved(); !reflect.DeepEqual(got, []string{"partial"}) {
		t.Fatalf("unexpected unresolved list: %v", got)
	}
}

func TestResolveSlotsUseDistinctFiles(t *testing.T) {
	lister := resolve.ListerFunc(func(string) ([]string, error) { return []string{"a.wav"}, nil })
	sources := compiledSources(t, map[string]manifest.SourceItem{
		"pair": {InputFiles: [][]manifest.InputFile{{slot("*.wav"), slot("*.wav")}}},
	})
	r := resolve.New(sources, resolve.WithLister(lister))
	if ok, _ := r.Resolve("pair", "", "/d"); ok {
		t.Fatal("expected one file to be unable to satisfy two slots")
	}
}

func TestResolveFirstMatchWinsAcrossDirectories(t *testing.T) {
	listings := map[string][]string{
		"/first":  {"b.ogg", "a.ogg"},
		"/second": {"c.ogg"},
	}
	lister := resolve.ListerFunc(func(dir string) ([]string, error) { return listings[dir], nil })
	sources := compiledSources(t, map[string]manifest.SourceItem{
		"bgm": {InputFiles: [][]manifest.InputFile{{slot("*.ogg")}}},
	})
	r := resolve.New(sources, resolve.WithLister(lister))

	if ok, _ := r.Resolve("bgm", "one", "/first"); !ok {
		t.Fatal("expected first directory to resolve")
	}
	if ok, _ := r.Resolve("bgm", "two", "/second"); !ok {
		t.Fatal("expected already-resolved source to report true")
	}
	if got := r.Paths("bgm"); !reflect.DeepEqual(got, []string{filepath.Join("/first", "a.ogg")}) {
		t.Fatalf("expected sorted first match to stick, got %v", got)
	}

	r.Clear("bgm")
	if ok, _ := r.Resolve("bgm", "two", "/second"); !ok {
		t.Fatal("expected cleared source to resolve again")
	}
	if got := r.Paths("bgm"); !reflect.DeepEqual(got, []string{filepath.Join("/second", "c.ogg")}) {
		t.Fatalf("unexpected paths after clear: %v", got)
	}
}

func TestResolveDirectoryOverride(t *testing.T) {
	lister := resolve.ListerFunc(func(string) ([]string, error) { return []string{"x.flac"}, nil })
	sources := compiledSources(t, map[string]manifest.SourceItem{
		"bonus": {InputFiles: [][]manifest.InputFile{{{Directory: "bonus-disc", Pattern: "*.flac"}}}},
	})
	r := resolve.New(sources, resolve.WithLister(lister))
	if ok, _ := r.Resolve("bonus", "cd1", "/cd1"); ok {
		t.Fatal("expected override to reject other directories")
	}
	if ok, _ := r.Resolve("bonus", "bonus-disc", "/bonus"); !ok {
		t.Fatal("expected override directory to resolve")
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	files := []string{"z.flac", "m.flac", "a.flac"}
	sources := compiledSources(t, map[string]manifest.SourceItem{
		"v": {InputFiles: [][]manifest.InputFile{{slot("*.flac")}}},
	})
	var first map[string][]string
	for i := 0; i < 5; i++ {
		shuffled := append([]string(nil), files[i%3:]...)
		shuffled = append(shuffled, files[:i%3]...)
		lister := resolve.ListerFunc(func(string) ([]string, error) { return shuffled, nil })
		r := resolve.New(sources, resolve.WithLister(lister))
		if _, err := r.Resolve("v", "d", "/d"); err != nil {
			t.Fatalf("Resolve returned error: %v", err)
		}
		if first == nil {
			first = r.All()
			continue
		}
		if got := r.All(); !reflect.DeepEqual(got, first) {
			t.Fatalf("resolution changed: %v vs %v", got, first)
		}
	}
}

func TestResolveErrors(t *testing.T) {
	boom := errors.New("boom")
	lister := resolve.ListerFunc(func(string) ([]string, error) { return nil, boom })
	sources := compiledSources(t, map[string]manifest.SourceItem{
		"v": {InputFiles: [][]manifest.InputFile{{slot("*")}}},
	})
	r := resolve.New(sources, resolve.WithLister(lister))
	if _, err := r.Resolve("missing", "d", "/d"); err == nil {
		t.Fatal("expected unknown source error")
	}
	if _, err := r.Resolve("v", "d", "/d"); !errors.Is(err, boom) {
		t.Fatalf("expected lister error, got %v", err)
	}
}
