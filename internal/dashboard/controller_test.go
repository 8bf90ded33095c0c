package dashboard

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Swarm-DISC/SwarmPAL-processor/internal/cache"
	"github.com/Swarm-DISC/SwarmPAL-processor/internal/models"
	"github.com/Swarm-DISC/SwarmPAL-processor/internal/paldata"
	"github.com/Swarm-DISC/SwarmPAL-processor/internal/render"
	"github.com/Swarm-DISC/SwarmPAL-processor/internal/storage"
)

type fakeFetcher struct {
	calls atomic.Int64
	err   error
	block chan struct{}
}

func (f *fakeFetcher) Fetch(ctx context.Context, params []models.DataParams) (*paldata.DataTree, error) {
	f.calls.Add(1)
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return nil, f.err
	}
	tree := &paldata.DataTree{Name: "fetched"}
	group := &paldata.DataTree{
		Name:  params[0].Collection,
		Times: []int64{0, 60000, 120000},
	}
	group.SetVar("B_NEC", paldata.NewSeries([]float64{1, 2, 3}))
	if group.Name == "" {
		group.Name = params[0].Dataset
	}
	tree.Children = map[string]*paldata.DataTree{group.Name: group}
	return tree, nil
}

type fakeProcessor struct {
	calls atomic.Int64
	err   error
}

func (p *fakeProcessor) Apply(tree *paldata.DataTree, chain []models.ProcessParams) error {
	p.calls.Add(1)
	if p.err != nil {
		return p.err
	}
	for _, child := range tree.Children {
		child.SetVar("TFA_Variable", paldata.NewSeries([]float64{9, 9, 9}))
	}
	return nil
}

type fakeRenderer struct {
	renders atomic.Int64
}

func (r *fakeRenderer) Render(raw, processed *paldata.DataTree, cfg models.ProcessingConfig, aliases map[string]string) render.Artifacts {
	r.renders.Add(1)
	return render.Artifacts{
		Title:  "Test dashboard",
		Frames: map[int][]byte{0: {0xA}, 1: {0xB}, 2: {0xC}},
	}
}

func (r *fakeRenderer) Pending() []byte { return []byte("pending") }

func (r *fakeRenderer) Unavailable() []byte { return []byte("unavailable") }

type testRig struct {
	ctrl  *Controller
	fetch *fakeFetcher
	proc  *fakeProcessor
	rend  *fakeRenderer
	cache *cache.Service
}

func newTestRig(t *testing.T, dir string) *testRig {
	t.Helper()
	client, err := storage.NewLocalClient(dir)
	if err != nil {
		t.Fatalf("NewLocalClient: %v", err)
	}
	svc := cache.NewService(client)
	fetch := &fakeFetcher{}
	proc := &fakeProcessor{}
	rend := &fakeRenderer{}
	ctrl, err := NewController(TFADefinition(testServerURL), fetch, proc, rend, svc)
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	t.Cleanup(ctrl.Close)
	return &testRig{ctrl: ctrl, fetch: fetch, proc: proc, rend: rend, cache: svc}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestFetchAndProcessCommits(t *testing.T) {
	rig := newTestRig(t, t.TempDir())
	ctx := context.Background()

	if err := rig.ctrl.FetchAndProcess(ctx); err != nil {
		t.Fatalf("FetchAndProcess: %v", err)
	}

	if got := rig.fetch.calls.Load(); got != 1 {
		t.Errorf("fetch calls = %d, want 1", got)
	}
	if got := rig.proc.calls.Load(); got != 1 {
		t.Errorf("process calls = %d, want 1", got)
	}

	snap := rig.ctrl.Snapshot()
	if !snap.HasData {
		t.Error("snapshot reports no data after successful fetch")
	}
	if snap.Busy {
		t.Error("snapshot busy after operation finished")
	}
	if !snap.Player.Enabled || len(snap.Player.Keys) != 3 {
		t.Errorf("player state = %+v, want 3 enabled frames", snap.Player)
	}

	if img, ok := rig.ctrl.Frame(1); !ok || len(img) != 1 {
		t.Errorf("Frame(1) = %v, %v", img, ok)
	}

	entry, ok := rig.cache.Get(ctx, "tfa")
	if !ok {
		t.Fatal("cache slot empty after commit")
	}
	if entry.Config.DataParams[0].Collection != "SW_OPER_MAGA_LR_1B" {
		t.Errorf("cached config collection = %q", entry.Config.DataParams[0].Collection)
	}

	raw, processed, _ := rig.ctrl.Data()
	if _, ok := raw.Child("SW_OPER_MAGA_LR_1B").Var("TFA_Variable"); ok {
		t.Error("process chain mutated the raw tree")
	}
	if _, ok := processed.Child("SW_OPER_MAGA_LR_1B").Var("TFA_Variable"); !ok {
		t.Error("processed tree missing chain output")
	}
}

func TestFetchFailureLeavesStateAndCache(t *testing.T) {
	rig := newTestRig(t, t.TempDir())
	ctx := context.Background()

	if err := rig.ctrl.FetchAndProcess(ctx); err != nil {
		t.Fatal(err)
	}
	before, ok := rig.cache.Get(ctx, "tfa")
	if !ok {
		t.Fatal("cache miss after first fetch")
	}

	rig.fetch.err = errors.New("vires unreachable")
	if err := rig.ctrl.FetchAndProcess(ctx); err == nil {
		t.Fatal("FetchAndProcess succeeded with failing fetcher")
	}

	if !rig.ctrl.Snapshot().HasData {
		t.Error("failed fetch dropped existing data")
	}
	after, _ := rig.cache.Get(ctx, "tfa")
	if !after.FetchedAt.Equal(before.FetchedAt) {
		t.Error("failed fetch rewrote the cache slot")
	}
}

func TestProcessFailureLeavesState(t *testing.T) {
	rig := newTestRig(t, t.TempDir())
	ctx := context.Background()

	if err := rig.ctrl.FetchAndProcess(ctx); err != nil {
		t.Fatal(err)
	}
	before, _ := rig.cache.Get(ctx, "tfa")
	artsBefore := rig.ctrl.Artifacts()
	framesBefore := artsBefore.FrameKeys()

	rig.proc.err = errors.New("window size exceeds series")
	if err := rig.ctrl.FetchAndProcess(ctx); err == nil {
		t.Fatal("FetchAndProcess succeeded with failing processor")
	}

	after, _ := rig.cache.Get(ctx, "tfa")
	if !after.FetchedAt.Equal(before.FetchedAt) {
		t.Error("failed processing rewrote the cache slot")
	}
	artsAfter := rig.ctrl.Artifacts()
	if got := artsAfter.FrameKeys(); len(got) != len(framesBefore) {
		t.Errorf("frames after failure = %v, want %v", got, framesBefore)
	}
}

func TestReprocessSkipsFetch(t *testing.T) {
	rig := newTestRig(t, t.TempDir())
	ctx := context.Background()

	if err := rig.ctrl.FetchAndProcess(ctx); err != nil {
		t.Fatal(err)
	}
	if err := rig.ctrl.Inputs().Set("clean-window-size", "500"); err != nil {
		t.Fatal(err)
	}
	drain(rig.ctrl.Inputs().Changes())

	if err := rig.ctrl.Reprocess(ctx); err != nil {
		t.Fatalf("Reprocess: %v", err)
	}
	if got := rig.fetch.calls.Load(); got != 1 {
		t.Errorf("fetch calls after reprocess = %d, want 1", got)
	}
	if got := rig.proc.calls.Load(); got != 2 {
		t.Errorf("process calls = %d, want 2", got)
	}

	entry, _ := rig.cache.Get(ctx, "tfa")
	if ws := entry.Config.ProcessParams[1].WindowSize; ws == nil || *ws != 500 {
		t.Errorf("cached window size = %v, want 500", ws)
	}
}

func TestReprocessWithoutDataErrNoData(t *testing.T) {
	rig := newTestRig(t, t.TempDir())
	ctx := context.Background()

	if err := rig.ctrl.Reprocess(ctx); !errors.Is(err, ErrNoData) {
		t.Fatalf("Reprocess on empty state: %v, want ErrNoData", err)
	}
	if _, ok := rig.cache.Get(ctx, "tfa"); ok {
		t.Error("reprocess without data touched the cache")
	}
	if got := rig.fetch.calls.Load(); got != 0 {
		t.Errorf("fetch calls = %d, want 0", got)
	}
}

func TestRestoreFromCacheSkipsFetch(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first := newTestRig(t, dir)
	if err := first.ctrl.FetchAndProcess(ctx); err != nil {
		t.Fatal(err)
	}

	// fresh rig over the same backend directory is a process restart
	second := newTestRig(t, dir)
	if err := second.ctrl.RestoreOrInit(ctx); err != nil {
		t.Fatalf("RestoreOrInit: %v", err)
	}
	if got := second.fetch.calls.Load(); got != 0 {
		t.Errorf("restore performed %d fetches, want 0", got)
	}

	snap := second.ctrl.Snapshot()
	if !snap.HasData {
		t.Error("restored controller reports no data")
	}
	if !snap.Player.Enabled {
		t.Error("restored controller's player disabled")
	}
	if _, ok := second.ctrl.Frame(2); !ok {
		t.Error("restored artifacts missing frame 2")
	}
}

func TestRestoreOrInitFetchesOnMiss(t *testing.T) {
	rig := newTestRig(t, t.TempDir())
	if err := rig.ctrl.RestoreOrInit(context.Background()); err != nil {
		t.Fatalf("RestoreOrInit: %v", err)
	}
	if got := rig.fetch.calls.Load(); got != 1 {
		t.Errorf("fetch calls on cold start = %d, want 1", got)
	}
}

func TestConcurrentOperationsErrBusy(t *testing.T) {
	rig := newTestRig(t, t.TempDir())
	ctx := context.Background()

	rig.fetch.block = make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- rig.ctrl.FetchAndProcess(ctx) }()

	waitFor(t, "fetch to start", func() bool { return rig.fetch.calls.Load() == 1 })

	if err := rig.ctrl.FetchAndProcess(ctx); !errors.Is(err, ErrBusy) {
		t.Errorf("concurrent FetchAndProcess: %v, want ErrBusy", err)
	}
	if err := rig.ctrl.Reprocess(ctx); !errors.Is(err, ErrBusy) {
		t.Errorf("concurrent Reprocess: %v, want ErrBusy", err)
	}
	if !rig.ctrl.Busy() {
		t.Error("Busy() = false while fetch in flight")
	}

	close(rig.fetch.block)
	if err := <-done; err != nil {
		t.Fatalf("blocked FetchAndProcess: %v", err)
	}
	if rig.ctrl.Busy() {
		t.Error("Busy() = true after operation finished")
	}
}

func TestWatchCollapsesBursts(t *testing.T) {
	rig := newTestRig(t, t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := rig.ctrl.FetchAndProcess(ctx); err != nil {
		t.Fatal(err)
	}
	drain(rig.ctrl.Inputs().Changes())

	// queue a burst before the watcher starts so it lands as one batch
	for _, set := range [][2]string{
		{"preprocess-sampling-rate", "2.1"},
		{"clean-window-size", "600"},
		{"clean-multiplier", "0.9"},
		{"filter-cutoff", "0.05"},
		{"wavelet-dj", "0.2"},
	} {
		if err := rig.ctrl.Inputs().Set(set[0], set[1]); err != nil {
			t.Fatal(err)
		}
	}

	watchDone := make(chan struct{})
	go func() {
		rig.ctrl.Watch(ctx)
		close(watchDone)
	}()

	waitFor(t, "burst reprocess", func() bool { return rig.proc.calls.Load() == 2 })
	time.Sleep(20 * time.Millisecond)
	if got := rig.proc.calls.Load(); got != 2 {
		t.Errorf("burst of 5 changes ran %d reprocesses, want 1", got-1)
	}
	if got := rig.fetch.calls.Load(); got != 1 {
		t.Errorf("watcher fetched: calls = %d, want 1", got)
	}

	// a later single change runs one more pass
	if err := rig.ctrl.Inputs().Set("clean-method", "normal"); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "single reprocess", func() bool { return rig.proc.calls.Load() == 3 })

	entry, _ := rig.cache.Get(ctx, "tfa")
	if entry.Config.ProcessParams[1].Method != "normal" {
		t.Errorf("cached method = %q, want normal", entry.Config.ProcessParams[1].Method)
	}

	cancel()
	select {
	case <-watchDone:
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not exit on context cancel")
	}
}

func TestWatchBeforeFetchIsQuiet(t *testing.T) {
	rig := newTestRig(t, t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go rig.ctrl.Watch(ctx)

	if err := rig.ctrl.Inputs().Set("wavelet-dj", "0.3"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)
	if got := rig.fetch.calls.Load(); got != 0 {
		t.Errorf("change before any fetch triggered %d fetches", got)
	}
	if got := rig.proc.calls.Load(); got != 0 {
		t.Errorf("change before any fetch ran %d process chains", got)
	}
}
