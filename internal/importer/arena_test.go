package importer

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"scdmix/internal/media/pcm"
	"scdmix/internal/services"
)

type countingSource struct {
	mu     *sync.Mutex
	closed *int
}

func (s countingSource) Read(int, bool) ([]float32, error) { return nil, io.EOF }
func (s countingSource) SampleRate() int                   { return 8000 }
func (s countingSource) Channels() int                     { return 2 }
func (s countingSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	*s.closed++
	return nil
}

func TestArenaSharesAndClosesOnLastRelease(t *testing.T) {
	var mu sync.Mutex
	opens, closed := 0, 0
	a := newArena(func(ctx context.Context, key sourceKey) (*pcm.SourceSet, error) {
		mu.Lock()
		opens++
		mu.Unlock()
		return pcm.NewSourceSet(key.source, countingSource{mu: &mu, closed: &closed}), nil
	})
	key := sourceKey{source: "bgm", rate: 8000}
	a.retain(key)
	a.retain(key)

	first, err := a.acquire(context.Background(), key)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	second, err := a.acquire(context.Background(), key)
	if err != nil || second != first {
		t.Fatalf("expected the same set, got %p %p (%v)", first, second, err)
	}

	a.release(key)
	if closed != 0 || a.live() != 1 {
		t.Fatalf("closed too early: closed=%d live=%d", closed, a.live())
	}
	a.release(key)
	if closed != 1 || a.live() != 0 || opens != 1 {
		t.Fatalf("expected one open and one close, got opens=%d closed=%d live=%d", opens, closed, a.live())
	}
}

func TestArenaCachesOpenFailure(t *testing.T) {
	opens := 0
	boom := errors.New("boom")
	a := newArena(func(ctx context.Context, key sourceKey) (*pcm.SourceSet, error) {
		opens++
		return nil, boom
	})
	key := sourceKey{source: "bad"}
	a.retain(key)
	a.retain(key)
	for range 2 {
		if _, err := a.acquire(context.Background(), key); !errors.Is(err, boom) {
			t.Fatalf("expected cached failure, got %v", err)
		}
	}
	if opens != 1 {
		t.Fatalf("expected one open attempt, got %d", opens)
	}
	a.release(key)
	a.release(key)
	if a.live() != 0 {
		t.Fatal("failed entries must be dropped after release")
	}
}

func TestArenaRejectsUnretainedKey(t *testing.T) {
	a := newArena(func(ctx context.Context, key sourceKey) (*pcm.SourceSet, error) {
		t.Fatal("open must not be called")
		return nil, nil
	})
	if _, err := a.acquire(context.Background(), sourceKey{source: "x"}); !errors.Is(err, services.ErrConfigInvariant) {
		t.Fatalf("expected config invariant error, got %v", err)
	}
	a.release(sourceKey{source: "x"})
}
