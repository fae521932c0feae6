package stream

import (
	"container/heap"
	"log"
	"sync"

	"voxelrealm.gg/internal/sim/mesh"
	"voxelrealm.gg/internal/sim/terrain"
	"voxelrealm.gg/internal/sim/voxel"
)

// Payload is the output of one generation+meshing job.
type Payload struct {
	Grid    *voxel.Grid
	Mesh    *mesh.Mesh
	Portals []terrain.PortalSpawn
}

// GenerateFunc produces a chunk at a level of detail. It must be a pure
// function of its arguments; workers call it concurrently with no
// shared state.
type GenerateFunc func(cx, cz, lod int) Payload

// LoadedChunk is a ready chunk: raw blocks for world queries plus the
// renderable mesh.
type LoadedChunk struct {
	Key     voxel.ChunkKey
	LOD     int
	Grid    *voxel.Grid
	Mesh    *mesh.Mesh
	Portals []terrain.PortalSpawn
}

type Config struct {
	ChunkEdge    int
	ViewRadius   int // chunks queued around the viewer
	RetainRadius int // chunks kept before eviction
	LODBand      int // chunk distance per LOD step
	MaxLOD       int
	Workers      int
}

type pendingState struct {
	lod      int
	inFlight bool
	job      *job // non-nil while still queued

	// A stricter request that arrived while the job was in flight.
	// Re-queued when the running job completes, keeping at most one
	// job per key at a time.
	hasUpgrade  bool
	upgradeDist int
}

// Scheduler owns the chunk lifecycle: unrequested -> queued ->
// in-flight -> ready, with re-queues for stricter LOD. All bookkeeping
// is guarded by mu; generation itself runs outside the lock on the
// worker pool.
type Scheduler struct {
	cfg      Config
	generate GenerateFunc
	log      *log.Logger

	mu        sync.Mutex
	cond      *sync.Cond
	closed    bool
	queue     jobHeap
	pending   map[voxel.ChunkKey]*pendingState
	loaded    map[voxel.ChunkKey]*LoadedChunk
	latestGen map[voxel.ChunkKey]uint64
	waiters   map[voxel.ChunkKey][]func(*LoadedChunk)
	nextGen   uint64

	viewers []voxel.ChunkKey

	onReady func(*LoadedChunk)

	wg sync.WaitGroup
}

func NewScheduler(cfg Config, generate GenerateFunc, logger *log.Logger) *Scheduler {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	s := &Scheduler{
		cfg:       cfg,
		generate:  generate,
		log:       logger,
		pending:   map[voxel.ChunkKey]*pendingState{},
		loaded:    map[voxel.ChunkKey]*LoadedChunk{},
		latestGen: map[voxel.ChunkKey]uint64{},
		waiters:   map[voxel.ChunkKey][]func(*LoadedChunk){},
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// SetReadyFunc registers a callback fired whenever a chunk becomes
// ready. It runs on a worker goroutine; keep it cheap.
func (s *Scheduler) SetReadyFunc(fn func(*LoadedChunk)) {
	s.mu.Lock()
	s.onReady = fn
	s.mu.Unlock()
}

// Start launches the worker pool.
func (s *Scheduler) Start() {
	for i := 0; i < s.cfg.Workers; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}
}

// Close stops the workers after their current jobs finish.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cond.Broadcast()
	s.wg.Wait()
}

// LODFor is the step function from chunk distance to level of detail.
func (s *Scheduler) LODFor(dist int) int {
	if s.cfg.LODBand <= 0 {
		return 0
	}
	lod := dist / s.cfg.LODBand
	if lod > s.cfg.MaxLOD {
		lod = s.cfg.MaxLOD
	}
	return lod
}

// Request queues chunk (x,z) with the given priority distance. It is a
// no-op when the chunk is already live at an equal-or-better LOD, or
// already pending.
func (s *Scheduler) Request(x, z, dist int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requestLocked(voxel.ChunkKey{X: x, Z: z}, dist)
}

func (s *Scheduler) requestLocked(key voxel.ChunkKey, dist int) {
	want := s.LODFor(dist)
	if lc, ok := s.loaded[key]; ok && lc.LOD <= want {
		return
	}
	if ps, ok := s.pending[key]; ok {
		if ps.job != nil {
			// Still queued: improve priority/LOD in place.
			if want < ps.lod || dist < ps.job.dist {
				if want < ps.lod {
					ps.lod = want
					ps.job.lod = want
				}
				if dist < ps.job.dist {
					ps.job.dist = dist
					heap.Fix(&s.queue, ps.job.index)
				}
				s.nextGen++
				ps.job.gen = s.nextGen
				s.latestGen[key] = s.nextGen
			}
		} else if want < ps.lod {
			// In flight at a coarser LOD: mark its result stale and
			// record the follow-up to queue on completion.
			s.nextGen++
			s.latestGen[key] = s.nextGen
			if !ps.hasUpgrade || dist < ps.upgradeDist {
				ps.hasUpgrade = true
				ps.upgradeDist = dist
			}
		}
		return
	}

	s.nextGen++
	j := &job{key: key, lod: want, dist: dist, gen: s.nextGen}
	s.latestGen[key] = s.nextGen
	s.pending[key] = &pendingState{lod: want, job: j}
	heap.Push(&s.queue, j)
	s.cond.Signal()
}

// OnViewerMoved is OnViewersMoved for a single viewer.
func (s *Scheduler) OnViewerMoved(cx, cz int) {
	s.OnViewersMoved([]voxel.ChunkKey{{X: cx, Z: cz}})
}

// OnViewersMoved recomputes the required chunk set around every viewer:
// queues missing or under-detailed chunks and evicts loaded chunks
// outside the retention radius of all viewers. Chunks with a job in
// flight are never evicted here; completion handles them.
func (s *Scheduler) OnViewersMoved(viewers []voxel.ChunkKey) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.viewers = append(s.viewers[:0], viewers...)

	r := s.cfg.ViewRadius
	for _, v := range s.viewers {
		for dz := -r; dz <= r; dz++ {
			for dx := -r; dx <= r; dx++ {
				key := voxel.ChunkKey{X: v.X + dx, Z: v.Z + dz}
				s.requestLocked(key, chebyshev(dx, dz))
			}
		}
	}

	for key, lc := range s.loaded {
		if s.chunkDistLocked(key) <= s.cfg.RetainRadius {
			continue
		}
		if _, busy := s.pending[key]; busy {
			continue
		}
		s.disposeLocked(key, lc)
	}
}

func (s *Scheduler) disposeLocked(key voxel.ChunkKey, lc *LoadedChunk) {
	delete(s.loaded, key)
	delete(s.latestGen, key)
	// Mesh buffers are plain slices; dropping the reference is the
	// disposal. Render-side resources are the presentation layer's.
	_ = lc
}

// Loaded returns the ready chunk for (x,z), or nil.
func (s *Scheduler) Loaded(x, z int) *LoadedChunk {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded[voxel.ChunkKey{X: x, Z: z}]
}

// WhenReady requests (x,z) at maximum priority and runs fn once the
// chunk is ready. Fires synchronously when it already is.
func (s *Scheduler) WhenReady(x, z int, fn func(*LoadedChunk)) {
	key := voxel.ChunkKey{X: x, Z: z}
	s.mu.Lock()
	if lc, ok := s.loaded[key]; ok {
		s.mu.Unlock()
		fn(lc)
		return
	}
	s.waiters[key] = append(s.waiters[key], fn)
	s.requestLocked(key, 0)
	s.mu.Unlock()
}

// BlockAt is the world query surface over loaded chunks. Unloaded
// regions read as air.
func (s *Scheduler) BlockAt(wx, wy, wz int) voxel.Block {
	e := s.cfg.ChunkEdge
	key := voxel.ChunkKey{X: voxel.FloorDiv(wx, e), Z: voxel.FloorDiv(wz, e)}
	s.mu.Lock()
	lc := s.loaded[key]
	s.mu.Unlock()
	if lc == nil {
		return voxel.Air
	}
	return lc.Grid.At(voxel.Mod(wx, e), wy, voxel.Mod(wz, e))
}

// FindGroundHeight scans downward from the top of the chunk column for
// the first solid block and returns the y to stand at, or false when
// the column is unloaded or empty.
func (s *Scheduler) FindGroundHeight(wx, wz int, solid func(voxel.Block) bool) (int, bool) {
	e := s.cfg.ChunkEdge
	key := voxel.ChunkKey{X: voxel.FloorDiv(wx, e), Z: voxel.FloorDiv(wz, e)}
	s.mu.Lock()
	lc := s.loaded[key]
	s.mu.Unlock()
	if lc == nil {
		return 0, false
	}
	lx, lz := voxel.Mod(wx, e), voxel.Mod(wz, e)
	for y := lc.Grid.EY - 1; y >= 0; y-- {
		if solid(lc.Grid.At(lx, y, lz)) {
			return y + 1, true
		}
	}
	return 0, false
}

// chunkDistLocked is the chebyshev distance from key to its nearest
// viewer. With no viewers everything reads as distance 0, so nothing
// gets evicted.
func (s *Scheduler) chunkDistLocked(key voxel.ChunkKey) int {
	if len(s.viewers) == 0 {
		return 0
	}
	best := -1
	for _, v := range s.viewers {
		d := chebyshev(key.X-v.X, key.Z-v.Z)
		if best < 0 || d < best {
			best = d
		}
	}
	return best
}

func chebyshev(dx, dz int) int {
	return voxel.MaxInt(voxel.AbsInt(dx), voxel.AbsInt(dz))
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.closed {
			s.cond.Wait()
		}
		if s.closed {
			s.mu.Unlock()
			return
		}
		j := heap.Pop(&s.queue).(*job)
		ps := s.pending[j.key]
		if ps == nil {
			s.mu.Unlock()
			continue
		}
		ps.inFlight = true
		ps.job = nil
		s.mu.Unlock()

		s.runJob(id, j)
	}
}

// runJob executes one generation job outside the lock. A fault in the
// generator is contained here: the slot is freed and the queue keeps
// draining. The failed chunk is not retried.
func (s *Scheduler) runJob(workerID int, j *job) {
	var p Payload
	ok := func() (ok bool) {
		defer func() {
			if r := recover(); r != nil {
				if s.log != nil {
					s.log.Printf("chunk worker %d: job (%d,%d) lod %d panicked: %v",
						workerID, j.key.X, j.key.Z, j.lod, r)
				}
			}
		}()
		p = s.generate(j.key.X, j.key.Z, j.lod)
		return true
	}()

	s.mu.Lock()
	ps := s.pending[j.key]
	delete(s.pending, j.key)
	requeue := ps != nil && ps.hasUpgrade
	if requeue {
		defer func() {
			s.mu.Lock()
			s.requestLocked(j.key, ps.upgradeDist)
			s.mu.Unlock()
		}()
	}
	if !ok {
		s.mu.Unlock()
		return
	}
	if s.latestGen[j.key] != j.gen {
		// A newer request superseded this job while it ran; drop the
		// stale result rather than clobbering.
		s.mu.Unlock()
		return
	}
	if len(s.viewers) > 0 && s.chunkDistLocked(j.key) > s.cfg.RetainRadius && len(s.waiters[j.key]) == 0 {
		// Deferred eviction: the viewer moved on while the job was in
		// flight. Discard immediately.
		delete(s.latestGen, j.key)
		s.mu.Unlock()
		return
	}
	lc := &LoadedChunk{Key: j.key, LOD: j.lod, Grid: p.Grid, Mesh: p.Mesh, Portals: p.Portals}
	s.loaded[j.key] = lc
	waiters := s.waiters[j.key]
	delete(s.waiters, j.key)
	onReady := s.onReady
	s.mu.Unlock()

	if onReady != nil {
		onReady(lc)
	}
	for _, fn := range waiters {
		fn(lc)
	}
}
