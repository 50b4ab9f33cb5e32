package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/repobubbles/pkg/cache"
	"github.com/matzehuels/repobubbles/pkg/colors"
	"github.com/matzehuels/repobubbles/pkg/diagram"
	"github.com/matzehuels/repobubbles/pkg/engine"
	errs "github.com/matzehuels/repobubbles/pkg/errors"
	"github.com/matzehuels/repobubbles/pkg/layout"
	"github.com/matzehuels/repobubbles/pkg/observability"
	"github.com/matzehuels/repobubbles/pkg/poscache"
	"github.com/matzehuels/repobubbles/pkg/tree"
)

// Cache key types reported to observability hooks.
const (
	keyTypeSnapshot = "snapshot"
	keyTypeLayout   = "layout"
	keyTypeArtifact = "artifact"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API use it so that snapshots and artifacts are keyed the
// same way everywhere.
//
// A Runner holds no per-run state. Concurrent runs for different projects
// are safe; concurrent runs for the same project race on its snapshot, so
// callers serialize them.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	// Engine holds the packing and simulation constants. The canvas is
	// taken from Options on every run.
	Engine engine.Config

	// Colors resolves extension colors. Nil means the linguist table.
	Colors colors.Table

	// SnapshotTTL is the lifetime of stored position snapshots.
	SnapshotTTL time.Duration
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching and snapshots disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:       c,
		Keyer:       keyer,
		Logger:      logger,
		Engine:      engine.DefaultConfig(),
		Colors:      colors.Linguist(),
		SnapshotTTL: cache.TTLSnapshot,
	}
}

// Execute runs the layout → render pipeline with caching.
func (r *Runner) Execute(ctx context.Context, root *tree.Node, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	result := &Result{}

	// Stage 1: Layout
	layoutStart := time.Now()
	l, info, err := r.LayoutWithCacheInfo(ctx, root, opts)
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	result.Layout = l
	result.Stats.NodeCount = tree.Count(root)
	result.Stats.CircleCount = len(l.Circles)
	result.Stats.LayoutTime = time.Since(layoutStart)
	result.CacheInfo = info
	if data, err := json.Marshal(root); err == nil {
		result.TreeHash = cache.Hash(data)
	}

	r.Logger.Info("computed layout",
		"project", opts.Project,
		"nodes", result.Stats.NodeCount,
		"circles", result.Stats.CircleCount,
		"snapshot", info.SnapshotHit,
		"cached", info.LayoutHit,
		"duration", result.Stats.LayoutTime)

	// Stage 2: Render
	renderStart := time.Now()
	artifacts, renderHit, err := r.RenderWithCacheInfo(ctx, l, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = renderHit

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"cached", renderHit,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// LayoutWithCacheInfo lays out root for opts.Project and reports which
// caches were used.
//
// Bubble layouts are seeded from the project's snapshot, and the snapshot
// is replaced after the pass. The diagram is cached under the tree hash and
// the hash of the snapshot it produced, so an unchanged tree redraws the
// picture the snapshot describes instead of running another pass.
func (r *Runner) LayoutWithCacheInfo(ctx context.Context, root *tree.Node, opts Options) (diagram.Layout, CacheInfo, error) {
	var info CacheInfo
	if root == nil {
		return diagram.Layout{}, info, errs.New(errs.ErrCodeInvalidInput, "tree is empty")
	}
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return diagram.Layout{}, info, err
	}

	treeData, err := json.Marshal(root)
	if err != nil {
		return diagram.Layout{}, info, fmt.Errorf("serialize tree for cache key: %w", err)
	}
	treeHash := cache.Hash(treeData)

	if opts.IsNodelink() {
		key := r.Keyer.LayoutKey(treeHash, opts.LayoutKeyOpts(""))
		if l, ok := r.cachedLayout(ctx, key, opts); ok {
			info.LayoutHit = true
			return l, info, nil
		}
		l := r.nodelink(ctx, root, opts)
		r.storeLayout(ctx, key, l)
		return l, info, nil
	}

	eng, snapshotHash, found := r.restore(ctx, opts)
	info.SnapshotHit = found
	if found {
		key := r.Keyer.LayoutKey(treeHash, opts.LayoutKeyOpts(snapshotHash))
		if l, ok := r.cachedLayout(ctx, key, opts); ok {
			info.LayoutHit = true
			return l, info, nil
		}
	}

	l, _, err := r.LayoutWith(ctx, eng, root, opts)
	if err != nil {
		return diagram.Layout{}, info, err
	}
	newHash, err := r.SaveSnapshot(ctx, opts.Project, eng.Cache())
	if err != nil {
		r.Logger.Warn("could not save position snapshot", "project", opts.Project, "error", err)
		return l, info, nil
	}
	r.storeLayout(ctx, r.Keyer.LayoutKey(treeHash, opts.LayoutKeyOpts(newHash)), l)
	return l, info, nil
}

// Layout is a convenience wrapper that calls LayoutWithCacheInfo and discards the cache info.
func (r *Runner) Layout(ctx context.Context, root *tree.Node, opts Options) (diagram.Layout, error) {
	l, _, err := r.LayoutWithCacheInfo(ctx, root, opts)
	return l, err
}

// NewEngine returns an engine seeded with the project's snapshot and
// whether one was found. Refresh starts from an empty cache.
func (r *Runner) NewEngine(ctx context.Context, opts Options) (*engine.Engine, bool) {
	r.applyLogger(&opts)
	opts.SetDefaults()
	eng, _, found := r.restore(ctx, opts)
	return eng, found
}

// restore builds an engine for opts and returns the hash of the snapshot
// that seeded it.
func (r *Runner) restore(ctx context.Context, opts Options) (*engine.Engine, string, bool) {
	pc := poscache.New()
	var hash string
	found := false

	if !opts.Refresh {
		if data, hit := r.get(ctx, keyTypeSnapshot, r.Keyer.SnapshotKey(opts.Project)); hit {
			if err := json.Unmarshal(data, pc); err != nil {
				r.Logger.Warn("discarding unreadable position snapshot", "project", opts.Project, "error", err)
				pc = poscache.New()
			} else {
				hash = cache.Hash(data)
				found = true
			}
		}
	}
	observability.Pipeline().OnSnapshotLoad(ctx, opts.Project, found)

	eng := engine.New(
		engine.WithConfig(engineConfig(r.Engine, opts)),
		engine.WithColors(r.colors()),
		engine.WithLogger(opts.Logger),
		engine.WithCache(pc),
	)
	return eng, hash, found
}

// LayoutWith runs one pass of eng over root and converts the result. Callers
// that keep engines in memory use it directly and persist snapshots with
// SaveSnapshot when they choose.
func (r *Runner) LayoutWith(ctx context.Context, eng *engine.Engine, root *tree.Node, opts Options) (diagram.Layout, *layout.Tree, error) {
	if root == nil {
		return diagram.Layout{}, nil, errs.New(errs.ErrCodeInvalidInput, "tree is empty")
	}
	opts.SetDefaults()
	if opts.IsNodelink() {
		return r.nodelink(ctx, root, opts), nil, nil
	}

	hooks := observability.Pipeline()
	hooks.OnLayoutStart(ctx, opts.Project, tree.Count(root))
	start := time.Now()

	t := eng.Layout(root)
	if t == nil {
		err := errs.New(errs.ErrCodeInternal, "layout produced no circles")
		hooks.OnLayoutComplete(ctx, opts.Project, 0, time.Since(start), err)
		return diagram.Layout{}, nil, err
	}
	l := BubblesLayout(t, r.colors(), opts)
	hooks.OnLayoutComplete(ctx, opts.Project, len(l.Circles), time.Since(start), nil)
	return l, t, nil
}

func (r *Runner) nodelink(ctx context.Context, root *tree.Node, opts Options) diagram.Layout {
	hooks := observability.Pipeline()
	hooks.OnLayoutStart(ctx, opts.Project, tree.Count(root))
	start := time.Now()
	l := NodelinkLayout(root, r.colors(), opts)
	hooks.OnLayoutComplete(ctx, opts.Project, 0, time.Since(start), nil)
	return l
}

// SaveSnapshot stores pc as the project's position snapshot and returns the
// hash of the stored bytes.
func (r *Runner) SaveSnapshot(ctx context.Context, project string, pc *poscache.Cache) (string, error) {
	data, err := json.Marshal(pc)
	if err != nil {
		observability.Pipeline().OnSnapshotSave(ctx, project, pc.Len(), err)
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	err = r.set(ctx, keyTypeSnapshot, r.Keyer.SnapshotKey(project), data, r.snapshotTTL())
	observability.Pipeline().OnSnapshotSave(ctx, project, pc.Len(), err)
	if err != nil {
		return "", fmt.Errorf("store snapshot: %w", err)
	}
	return cache.Hash(data), nil
}

// DeleteSnapshot forgets the project's positions. The next pass starts from
// a fresh packing.
func (r *Runner) DeleteSnapshot(ctx context.Context, project string) error {
	if err := errs.ValidateProjectID(project); err != nil {
		return err
	}
	return r.Cache.Delete(ctx, r.Keyer.SnapshotKey(project))
}

// RenderWithCacheInfo generates artifacts with caching and returns cache hit info.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, l diagram.Layout, opts Options) (map[string][]byte, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}

	// Compute cache key from layout data
	layoutData, err := diagram.Marshal(l)
	if err != nil {
		return nil, false, fmt.Errorf("serialize layout for cache key: %w", err)
	}
	layoutHash := cache.Hash(layoutData)

	// Try to get all formats from cache
	artifacts := make(map[string][]byte)
	for _, format := range opts.Formats {
		data, hit := r.get(ctx, keyTypeArtifact, r.Keyer.ArtifactKey(layoutHash, opts.ArtifactKeyOpts(format)))
		if !hit {
			break
		}
		artifacts[format] = data
	}
	if len(artifacts) == len(opts.Formats) {
		return artifacts, true, nil
	}

	hooks := observability.Pipeline()
	hooks.OnRenderStart(ctx, opts.Formats)
	start := time.Now()
	rendered, err := Render(ctx, l, opts)
	hooks.OnRenderComplete(ctx, opts.Formats, time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	// Cache each format
	for format, data := range rendered {
		key := r.Keyer.ArtifactKey(layoutHash, opts.ArtifactKeyOpts(format))
		_ = r.set(ctx, keyTypeArtifact, key, data, cache.TTLArtifact)
	}

	return rendered, false, nil
}

// Render is a convenience wrapper that calls RenderWithCacheInfo and discards the cache hit info.
func (r *Runner) Render(ctx context.Context, l diagram.Layout, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, l, opts)
	return artifacts, err
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

func (r *Runner) cachedLayout(ctx context.Context, key string, opts Options) (diagram.Layout, bool) {
	if opts.Refresh {
		return diagram.Layout{}, false
	}
	data, hit := r.get(ctx, keyTypeLayout, key)
	if !hit {
		return diagram.Layout{}, false
	}
	l, err := diagram.Unmarshal(data)
	if err != nil {
		// Fall through and recompute.
		return diagram.Layout{}, false
	}
	return l, true
}

func (r *Runner) storeLayout(ctx context.Context, key string, l diagram.Layout) {
	if data, err := diagram.Marshal(l); err == nil {
		_ = r.set(ctx, keyTypeLayout, key, data, cache.TTLLayout)
	}
}

// get reads key and reports the outcome to the cache hooks. Backend errors
// count as misses.
func (r *Runner) get(ctx context.Context, keyType, key string) ([]byte, bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Debug("cache read failed", "key_type", keyType, "error", err)
		hit = false
	}
	if hit {
		observability.Cache().OnCacheHit(ctx, keyType)
	} else {
		observability.Cache().OnCacheMiss(ctx, keyType)
	}
	return data, hit
}

func (r *Runner) set(ctx context.Context, keyType, key string, data []byte, ttl time.Duration) error {
	if err := r.Cache.Set(ctx, key, data, ttl); err != nil {
		r.Logger.Debug("cache write failed", "key_type", keyType, "error", err)
		return err
	}
	observability.Cache().OnCacheSet(ctx, keyType, len(data))
	return nil
}

func (r *Runner) colors() colors.Table {
	if r.Colors == nil {
		return colors.Linguist()
	}
	return r.Colors
}

func (r *Runner) snapshotTTL() time.Duration {
	if r.SnapshotTTL <= 0 {
		return cache.TTLSnapshot
	}
	return r.SnapshotTTL
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
