package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestTracker_ObserveAndSnapshot(t *testing.T) {
	tr := NewTracker(nil)

	tr.Observe(Record{Path: PathBatch, Contracts: 100, Elapsed: 2 * time.Millisecond, ScalarElapsed: 8 * time.Millisecond})
	tr.Observe(Record{Path: PathBatch, Contracts: 100, Elapsed: 2 * time.Millisecond, ScalarElapsed: 4 * time.Millisecond})
	tr.Observe(Record{Path: PathScalar, Contracts: 5, Elapsed: 1 * time.Millisecond, FellBack: true})

	s := tr.Snapshot()
	if s.BatchCalls != 2 || s.ScalarCalls != 1 || s.Fallbacks != 1 {
		t.Fatalf("counts mismatch: %+v", s)
	}
	if s.TotalContracts != 205 {
		t.Fatalf("contract total mismatch: %+v", s)
	}
	// 加速比: (4x + 2x) / 2 = 3x
	if s.MeanSpeedup != 3 {
		t.Fatalf("mean speedup mismatch: %+v", s)
	}
	if s.LastSpeedup != 2 {
		t.Fatalf("last speedup mismatch: %+v", s)
	}
	if want := (2*time.Millisecond + 2*time.Millisecond + 1*time.Millisecond) / 3; s.MeanElapsed != want {
		t.Fatalf("mean elapsed mismatch: got=%v want=%v", s.MeanElapsed, want)
	}
}

func TestTracker_Reset(t *testing.T) {
	tr := NewTracker(nil)
	tr.Observe(Record{Path: PathBatch, Contracts: 10, Elapsed: time.Millisecond})

	tr.Reset()
	s := tr.Snapshot()
	if s.BatchCalls != 0 || s.TotalContracts != 0 || s.MeanSpeedup != 0 {
		t.Fatalf("reset incomplete: %+v", s)
	}
}

func TestTracker_ConcurrentObserve(t *testing.T) {
	// 多个工作协程并发上报，计数必须保持原子性
	tr := NewTracker(nil)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				tr.Observe(Record{Path: PathBatch, Contracts: 1, Elapsed: time.Microsecond})
			}
		}()
	}
	wg.Wait()

	s := tr.Snapshot()
	if s.BatchCalls != 8000 || s.TotalContracts != 8000 {
		t.Fatalf("lost updates: %+v", s)
	}
}

func TestTracker_SpeedupWindowBounded(t *testing.T) {
	tr := NewTracker(nil)
	for i := 0; i < speedupWindow+100; i++ {
		tr.Observe(Record{Path: PathBatch, Contracts: 1, Elapsed: time.Millisecond, ScalarElapsed: 2 * time.Millisecond})
	}
	tr.mu.Lock()
	n := len(tr.speedups)
	tr.mu.Unlock()
	if n > speedupWindow {
		t.Fatalf("speedup window not bounded: %d", n)
	}
}
