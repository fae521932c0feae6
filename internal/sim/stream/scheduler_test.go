package stream

import (
	"sync"
	"testing"
	"time"

	"voxelrealm.gg/internal/sim/voxel"
)

func testConfig() Config {
	return Config{
		ChunkEdge:    32,
		ViewRadius:   2,
		RetainRadius: 3,
		LODBand:      2,
		MaxLOD:       2,
		Workers:      4,
	}
}

// countingGen returns a GenerateFunc that records invocations per key.
func countingGen(mu *sync.Mutex, counts map[voxel.ChunkKey]int) GenerateFunc {
	return func(cx, cz, lod int) Payload {
		mu.Lock()
		counts[voxel.ChunkKey{X: cx, Z: cz}]++
		mu.Unlock()
		return Payload{Grid: voxel.NewCube(32), Mesh: nil}
	}
}

func waitReady(t *testing.T, s *Scheduler, x, z int) *LoadedChunk {
	t.Helper()
	done := make(chan *LoadedChunk, 1)
	s.WhenReady(x, z, func(lc *LoadedChunk) { done <- lc })
	select {
	case lc := <-done:
		return lc
	case <-time.After(5 * time.Second):
		t.Fatalf("chunk (%d,%d) never became ready", x, z)
		return nil
	}
}

func TestScheduler_NoDuplicateWork(t *testing.T) {
	var mu sync.Mutex
	counts := map[voxel.ChunkKey]int{}

	gate := make(chan struct{})
	gen := func(cx, cz, lod int) Payload {
		<-gate // hold every job in flight until all requests are issued
		mu.Lock()
		counts[voxel.ChunkKey{X: cx, Z: cz}]++
		mu.Unlock()
		return Payload{Grid: voxel.NewCube(32)}
	}

	s := NewScheduler(testConfig(), gen, nil)
	s.Start()
	defer s.Close()

	for i := 0; i < 20; i++ {
		s.Request(7, 7, 1)
	}
	close(gate)
	waitReady(t, s, 7, 7)

	mu.Lock()
	got := counts[voxel.ChunkKey{X: 7, Z: 7}]
	mu.Unlock()
	if got != 1 {
		t.Fatalf("chunk generated %d times, want 1", got)
	}
}

func TestScheduler_LODMonotonic(t *testing.T) {
	var mu sync.Mutex
	counts := map[voxel.ChunkKey]int{}

	s := NewScheduler(testConfig(), countingGen(&mu, counts), nil)
	s.Start()
	defer s.Close()

	// Load at full detail first.
	s.Request(1, 1, 0)
	lc := waitReady(t, s, 1, 1)
	if lc.LOD != 0 {
		t.Fatalf("initial LOD = %d, want 0", lc.LOD)
	}

	// A coarser request for the same chunk must be skipped entirely.
	s.Request(1, 1, 5)
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	got := counts[voxel.ChunkKey{X: 1, Z: 1}]
	mu.Unlock()
	if got != 1 {
		t.Fatalf("chunk regenerated for equal-or-worse LOD: %d generations", got)
	}
}

func TestScheduler_LODUpgradeRegenerates(t *testing.T) {
	var mu sync.Mutex
	counts := map[voxel.ChunkKey]int{}

	s := NewScheduler(testConfig(), countingGen(&mu, counts), nil)
	s.Start()
	defer s.Close()

	s.Request(2, 2, 5) // lod 2
	waitReady(t, s, 2, 2)
	// waitReady requests at distance 0, which demands lod 0 and must
	// trigger a regeneration replacing the coarse chunk.
	deadline := time.Now().Add(5 * time.Second)
	for {
		lc := s.Loaded(2, 2)
		if lc != nil && lc.LOD == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("chunk never upgraded to LOD 0 (still %+v)", lc)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestScheduler_WhenReadySynchronousIfLoaded(t *testing.T) {
	var mu sync.Mutex
	counts := map[voxel.ChunkKey]int{}

	s := NewScheduler(testConfig(), countingGen(&mu, counts), nil)
	s.Start()
	defer s.Close()

	waitReady(t, s, 4, 4)

	fired := false
	s.WhenReady(4, 4, func(lc *LoadedChunk) { fired = true })
	if !fired {
		t.Fatalf("WhenReady did not fire synchronously for a ready chunk")
	}
}

func TestScheduler_ViewerMoveEvictsOutOfRange(t *testing.T) {
	var mu sync.Mutex
	counts := map[voxel.ChunkKey]int{}

	s := NewScheduler(testConfig(), countingGen(&mu, counts), nil)
	s.Start()
	defer s.Close()

	s.OnViewerMoved(0, 0)
	waitReady(t, s, 0, 0)

	s.OnViewerMoved(50, 50)
	// The old origin chunk is far outside the retention radius. Eviction
	// happens either on the move (if idle) or on job completion, so poll.
	deadline := time.Now().Add(5 * time.Second)
	for s.Loaded(0, 0) != nil {
		if time.Now().After(deadline) {
			t.Fatalf("origin chunk not evicted after viewer moved away")
		}
		time.Sleep(5 * time.Millisecond)
		s.OnViewerMoved(50, 50)
	}
}

func TestScheduler_RetentionCoversEveryViewer(t *testing.T) {
	var mu sync.Mutex
	counts := map[voxel.ChunkKey]int{}

	s := NewScheduler(testConfig(), countingGen(&mu, counts), nil)
	s.Start()
	defer s.Close()

	both := []voxel.ChunkKey{{X: 0, Z: 0}, {X: 50, Z: 50}}
	s.OnViewersMoved(both)
	waitReady(t, s, 0, 0)
	waitReady(t, s, 50, 50)

	// Re-announcing the same set must keep the footing under every
	// viewer, however far apart they stand.
	for i := 0; i < 10; i++ {
		s.OnViewersMoved(both)
	}
	if s.Loaded(0, 0) == nil || s.Loaded(50, 50) == nil {
		t.Fatalf("chunk under a viewer was evicted")
	}

	// Dropping a viewer releases only that viewer's chunks.
	s.OnViewersMoved(both[1:])
	deadline := time.Now().Add(5 * time.Second)
	for s.Loaded(0, 0) != nil {
		if time.Now().After(deadline) {
			t.Fatalf("chunk not evicted after its viewer left")
		}
		time.Sleep(5 * time.Millisecond)
		s.OnViewersMoved(both[1:])
	}
	if s.Loaded(50, 50) == nil {
		t.Fatalf("remaining viewer's chunk evicted")
	}
}

func TestScheduler_WorkerPanicDoesNotDeadlockPool(t *testing.T) {
	gen := func(cx, cz, lod int) Payload {
		if cx == 13 {
			panic("bad chunk")
		}
		return Payload{Grid: voxel.NewCube(32)}
	}
	cfg := testConfig()
	cfg.Workers = 1 // a leaked slot would stall everything
	s := NewScheduler(cfg, gen, nil)
	s.Start()
	defer s.Close()

	s.Request(13, 0, 0)
	waitReady(t, s, 5, 0)

	if s.Loaded(13, 0) != nil {
		t.Fatalf("failed chunk unexpectedly installed")
	}
}

func TestScheduler_BlockAtUnloadedIsAir(t *testing.T) {
	var mu sync.Mutex
	counts := map[voxel.ChunkKey]int{}
	s := NewScheduler(testConfig(), countingGen(&mu, counts), nil)
	if b := s.BlockAt(1000, 5, 1000); b != voxel.Air {
		t.Fatalf("unloaded BlockAt = %d, want Air", b)
	}
}
