package hotreload

import (
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/flux-go/engine/compute"
	"github.com/Carmen-Shannon/flux-go/engine/config"
	"github.com/Carmen-Shannon/flux-go/engine/layout"
	"github.com/Carmen-Shannon/flux-go/engine/pipeline"
	"github.com/Carmen-Shannon/flux-go/engine/shader"
	"github.com/gogpu/naga"
)

// reloader is the implementation of the Reloader interface.
type reloader struct {
	cfg  config.Config
	l    layout.ResourceLayout
	comp compute.Compute

	path     string
	interval time.Duration
	workers  int

	// pool runs compiles off the frame path so a slow or failing compile
	// never stalls dispatch.
	pool worker.DynamicWorkerPool

	// swaps carries at most one freshly compiled set; a newer compile
	// replaces an unclaimed older one.
	swaps chan pipeline.PipelineSet

	quit     chan struct{}
	stopOnce sync.Once

	mu      *sync.Mutex
	lastMod time.Time

	compiling  atomic.Bool
	taskID     atomic.Int64
	generation atomic.Uint64
}

// Reloader watches one WGSL source file and recompiles it in the background
// whenever it changes on disk. A successful compile produces a complete
// replacement pipeline set claimed via Poll; a failed compile is logged and
// the active set stays untouched, so a broken save never kills a running
// effect.
type Reloader interface {
	// Path returns the watched source file path.
	Path() string

	// Poll claims a freshly compiled pipeline set if one is ready. Non-blocking;
	// intended to be called once per frame. The caller owns the returned set
	// and releases the one it replaces.
	//
	// Returns:
	//   - pipeline.PipelineSet: the new set, nil if none is ready
	//   - bool: true if a set was claimed
	Poll() (pipeline.PipelineSet, bool)

	// ForceReload queues a recompile of the current file contents regardless
	// of modification time. A compile already in flight absorbs the request.
	ForceReload()

	// Generation returns the number of successful compiles since the reloader
	// started. The initial set built by the effect is not counted.
	Generation() uint64

	// Stop ends the watch goroutine and releases any unclaimed set. The
	// reloader cannot be restarted.
	Stop()
}

var _ Reloader = &reloader{}

// NewReloader starts watching a shader source file for an effect. The file
// must exist; its current modification time becomes the baseline, so only
// subsequent saves trigger a recompile.
//
// Parameters:
//   - cfg: the effect configuration naming the stages
//   - l: the layout synthesized from cfg
//   - comp: the device frontend to compile with
//   - path: the WGSL source file to watch
//   - options: a variadic list of options to configure the reloader
//
// Returns:
//   - Reloader: the running reloader
//   - error: an error if the file cannot be stat'd
func NewReloader(cfg config.Config, l layout.ResourceLayout, comp compute.Compute, path string, options ...ReloaderBuilderOption) (Reloader, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot watch shader source %s: %w", path, err)
	}

	r := &reloader{
		cfg:      cfg,
		l:        l,
		comp:     comp,
		path:     path,
		interval: 500 * time.Millisecond,
		workers:  1,
		swaps:    make(chan pipeline.PipelineSet, 1),
		quit:     make(chan struct{}),
		mu:       &sync.Mutex{},
		lastMod:  info.ModTime(),
	}
	for _, opt := range options {
		opt(r)
	}

	// Queue size of 256 matches the shared tooling default; recompiles are
	// rare so the queue never gets close to full.
	r.pool = worker.NewDynamicWorkerPool(r.workers, 256, 1*time.Second)

	go r.watch()
	return r, nil
}

func (r *reloader) Path() string {
	return r.path
}

func (r *reloader) Poll() (pipeline.PipelineSet, bool) {
	select {
	case set := <-r.swaps:
		return set, true
	default:
		return nil, false
	}
}

func (r *reloader) ForceReload() {
	r.submitCompile()
}

func (r *reloader) Generation() uint64 {
	return r.generation.Load()
}

func (r *reloader) Stop() {
	r.stopOnce.Do(func() {
		close(r.quit)
		select {
		case set := <-r.swaps:
			set.Release()
		default:
		}
	})
}

// watch polls the file's modification time until Stop. Polling sidesteps the
// editor-dependent rename/write event patterns that plague inotify watchers.
func (r *reloader) watch() {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.quit:
			return
		case <-ticker.C:
			info, err := os.Stat(r.path)
			if err != nil {
				continue
			}
			r.mu.Lock()
			changed := info.ModTime().After(r.lastMod)
			if changed {
				r.lastMod = info.ModTime()
			}
			r.mu.Unlock()
			if changed {
				r.submitCompile()
			}
		}
	}
}

// submitCompile queues one background compile. A compile already in flight
// absorbs the request; the next modification re-triggers.
func (r *reloader) submitCompile() {
	if !r.compiling.CompareAndSwap(false, true) {
		return
	}
	r.pool.SubmitTask(worker.Task{
		ID: int(r.taskID.Add(1)),
		Do: func() (any, error) {
			defer r.compiling.Store(false)

			set, err := r.compile()
			if err != nil {
				log.Printf("[HotReload] %s: compile failed, keeping active kernels: %v", r.path, err)
				return nil, err
			}

			// Replace an unclaimed older set rather than queueing behind it.
			select {
			case old := <-r.swaps:
				old.Release()
			default:
			}
			r.swaps <- set
			r.generation.Add(1)
			log.Printf("[HotReload] %s: recompiled (generation %d)", r.path, r.generation.Load())
			return nil, nil
		},
	})
}

// compile reads, pre-processes, validates, and builds a full pipeline set
// from the file's current contents.
func (r *reloader) compile() (pipeline.PipelineSet, error) {
	sh, err := shader.NewShaderFromFile(r.cfg.Label(), r.path)
	if err != nil {
		return nil, err
	}

	// Validate before the device sees the source; a reload failure must never
	// disturb the active pipeline set.
	if err := sh.Process(shader.NewPreProcessor(r.cfg, r.l)); err != nil {
		return nil, err
	}
	if _, err := naga.Compile(sh.Processed()); err != nil {
		return nil, err
	}

	return pipeline.BuildPipelineSet(r.cfg, r.l, sh, r.comp)
}
