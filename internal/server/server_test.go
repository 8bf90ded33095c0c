package server

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bytedance/sonic"

	"github.com/Swarm-DISC/SwarmPAL-processor/internal/cache"
	"github.com/Swarm-DISC/SwarmPAL-processor/internal/charts"
	"github.com/Swarm-DISC/SwarmPAL-processor/internal/config"
	"github.com/Swarm-DISC/SwarmPAL-processor/internal/dashboard"
	"github.com/Swarm-DISC/SwarmPAL-processor/internal/models"
	"github.com/Swarm-DISC/SwarmPAL-processor/internal/paldata"
	"github.com/Swarm-DISC/SwarmPAL-processor/internal/render"
	"github.com/Swarm-DISC/SwarmPAL-processor/internal/storage"
)

type stubFetcher struct {
	calls atomic.Int64
	err   error
	block chan struct{}
}

func (f *stubFetcher) Fetch(ctx context.Context, params []models.DataParams) (*paldata.DataTree, error) {
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
	tree.Children = map[string]*paldata.DataTree{group.Name: group}
	return tree, nil
}

type stubProcessor struct{}

func (p *stubProcessor) Apply(tree *paldata.DataTree, chain []models.ProcessParams) error {
	for _, child := range tree.Children {
		child.SetVar("TFA_Variable", paldata.NewSeries([]float64{9, 9, 9}))
	}
	return nil
}

type serverRig struct {
	ts        *httptest.Server
	ctrl      *dashboard.Controller
	fetch     *stubFetcher
	uploadDir string
}

func (r *serverRig) api(path string) string {
	return r.ts.URL + "/api/dashboards/tfa" + path
}

func newServerRig(t *testing.T) *serverRig {
	t.Helper()
	dir := t.TempDir()

	client, err := storage.NewLocalClient(filepath.Join(dir, "cache"))
	if err != nil {
		t.Fatalf("NewLocalClient: %v", err)
	}
	svc := cache.NewService(client)

	fetch := &stubFetcher{}
	adapter := render.NewAdapter("TFA quicklook", charts.NewGenerator(),
		func(tree *paldata.DataTree) (map[int][]byte, error) {
			return map[int][]byte{0: {0xA0}, 1: {0xA1}, 2: {0xA2}}, nil
		})
	ctrl, err := dashboard.NewController(
		dashboard.TFADefinition("https://vires.services/ows"), fetch, &stubProcessor{}, adapter, svc)
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	t.Cleanup(ctrl.Close)

	cfg := &config.Config{Port: "0", UploadDir: filepath.Join(dir, "uploads")}
	srv, err := NewServer(cfg, []*dashboard.Controller{ctrl}, nil)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &serverRig{ts: ts, ctrl: ctrl, fetch: fetch, uploadDir: cfg.UploadDir}
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if out != nil {
		if err := sonic.Unmarshal(body, out); err != nil {
			t.Fatalf("decode %s: %v\n%s", url, err, body)
		}
	}
	return resp
}

func postForm(t *testing.T, url string, form url.Values) *http.Response {
	t.Helper()
	resp, err := http.PostForm(url, form)
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	resp.Body.Close()
	return resp
}

func waitUntil(t *testing.T, what string, cond func() bool) {
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

func TestHealthEndpoint(t *testing.T) {
	rig := newServerRig(t)

	var health struct {
		Status     string   `json:"status"`
		Version    string   `json:"version"`
		Dashboards []string `json:"dashboards"`
	}
	resp := getJSON(t, rig.ts.URL+"/health", &health)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status = %d", resp.StatusCode)
	}
	if health.Status != "healthy" || health.Version == "" {
		t.Errorf("health = %+v", health)
	}
	if len(health.Dashboards) != 1 || health.Dashboards[0] != "tfa" {
		t.Errorf("dashboards = %v, want [tfa]", health.Dashboards)
	}
}

func TestStateEndpoint(t *testing.T) {
	rig := newServerRig(t)

	var snap dashboard.Snapshot
	resp := getJSON(t, rig.api("/state"), &snap)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("state status = %d", resp.StatusCode)
	}
	if snap.Dashboard != "tfa" || snap.Busy || snap.HasData {
		t.Errorf("initial snapshot = %+v", snap)
	}
	if snap.Values["spacecraft"] != "Swarm-A" {
		t.Errorf("default spacecraft = %v", snap.Values["spacecraft"])
	}
}

func TestWidgetUpdate(t *testing.T) {
	rig := newServerRig(t)

	resp := postForm(t, rig.api("/widgets"), url.Values{
		"name":  {"clean-window-size"},
		"value": {"500"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("widget update status = %d", resp.StatusCode)
	}
	if got := rig.ctrl.Inputs().Int("clean-window-size"); got != 500 {
		t.Errorf("clean-window-size = %d, want 500", got)
	}
}

func TestWidgetUpdateRejected(t *testing.T) {
	rig := newServerRig(t)

	cases := []struct {
		name  string
		value string
	}{
		{"clean-window-size", "5"},
		{"clean-window-size", "lots"},
		{"no-such-widget", "1"},
		{"", "1"},
	}
	for _, tc := range cases {
		resp := postForm(t, rig.api("/widgets"), url.Values{
			"name":  {tc.name},
			"value": {tc.value},
		})
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("set %q=%q: status = %d, want 400", tc.name, tc.value, resp.StatusCode)
		}
	}
	if got := rig.ctrl.Inputs().Int("clean-window-size"); got != 300 {
		t.Errorf("rejected update changed value to %d", got)
	}
}

func TestFetchEndpointRunsInBackground(t *testing.T) {
	rig := newServerRig(t)

	resp := postForm(t, rig.api("/fetch"), nil)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("fetch status = %d, want 202", resp.StatusCode)
	}

	waitUntil(t, "fetch to finish", func() bool {
		snap := rig.ctrl.Snapshot()
		return snap.HasData && !snap.Busy
	})
	if got := rig.fetch.calls.Load(); got != 1 {
		t.Errorf("fetch calls = %d, want 1", got)
	}
}

func TestFetchConflictWhileBusy(t *testing.T) {
	rig := newServerRig(t)
	rig.fetch.block = make(chan struct{})

	if resp := postForm(t, rig.api("/fetch"), nil); resp.StatusCode != http.StatusAccepted {
		t.Fatalf("first fetch status = %d", resp.StatusCode)
	}
	waitUntil(t, "fetch to start", func() bool { return rig.fetch.calls.Load() == 1 })

	var snap dashboard.Snapshot
	getJSON(t, rig.api("/state"), &snap)
	if !snap.Busy {
		t.Error("state does not report busy during fetch")
	}

	if resp := postForm(t, rig.api("/fetch"), nil); resp.StatusCode != http.StatusConflict {
		t.Errorf("concurrent fetch status = %d, want 409", resp.StatusCode)
	}

	close(rig.fetch.block)
	waitUntil(t, "fetch to finish", func() bool { return !rig.ctrl.Busy() })
}

func TestUploadStagesFile(t *testing.T) {
	rig := newServerRig(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "SW_OPER_MAGA_LR_1B_20260101T000000_20260102T000000_0606.cdf")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte("not a real cdf"))
	mw.Close()

	resp, err := http.Post(rig.api("/upload"), mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upload status = %d", resp.StatusCode)
	}

	var reply struct {
		Filename string `json:"filename"`
		Dataset  string `json:"dataset"`
	}
	raw, _ := io.ReadAll(resp.Body)
	if err := sonic.Unmarshal(raw, &reply); err != nil {
		t.Fatalf("decode upload reply: %v", err)
	}
	if reply.Dataset != "SW_OPER_MAGA_LR_1B" {
		t.Errorf("dataset = %q", reply.Dataset)
	}

	file, ok := rig.ctrl.Inputs().File(dashboard.FileWidget)
	if !ok {
		t.Fatal("upload did not set the file slot")
	}
	if filepath.Ext(file.Path) != ".cdf" {
		t.Errorf("staged path = %q, want .cdf extension", file.Path)
	}
	content, err := os.ReadFile(file.Path)
	if err != nil {
		t.Fatalf("staged file: %v", err)
	}
	if string(content) != "not a real cdf" {
		t.Errorf("staged content = %q", content)
	}
}

func TestUploadRequiresFileField(t *testing.T) {
	rig := newServerRig(t)

	resp := postForm(t, rig.api("/upload"), url.Values{"file": {"nope"}})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("upload without file: status = %d, want 400", resp.StatusCode)
	}
}

func TestPlotEndpoint(t *testing.T) {
	rig := newServerRig(t)

	// before any fetch the placeholder is served
	resp, err := http.Get(rig.api("/plot"))
	if err != nil {
		t.Fatal(err)
	}
	placeholder, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || len(placeholder) == 0 {
		t.Fatalf("placeholder plot: status %d, %d bytes", resp.StatusCode, len(placeholder))
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type = %q", ct)
	}

	if err := rig.ctrl.FetchAndProcess(context.Background()); err != nil {
		t.Fatal(err)
	}

	resp, err = http.Get(rig.api("/plot?frame=1"))
	if err != nil {
		t.Fatal(err)
	}
	frame, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !bytes.Equal(frame, []byte{0xA1}) {
		t.Errorf("frame 1 = %v", frame)
	}

	// a key with no frame falls back to the placeholder
	resp, err = http.Get(rig.api("/plot?frame=99"))
	if err != nil {
		t.Fatal(err)
	}
	missing, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if len(missing) < 8 {
		t.Errorf("missing frame answered %d bytes", len(missing))
	}

	resp, err = http.Get(rig.api("/plot?frame=x"))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad frame param: status = %d, want 400", resp.StatusCode)
	}
}

func TestViewEndpoint(t *testing.T) {
	rig := newServerRig(t)

	resp, err := http.Get(rig.api("/view"))
	if err != nil {
		t.Fatal(err)
	}
	before, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(before), "Please fetch data first") {
		t.Errorf("empty view = %q", before)
	}

	if err := rig.ctrl.FetchAndProcess(context.Background()); err != nil {
		t.Fatal(err)
	}

	resp, err = http.Get(rig.api("/view"))
	if err != nil {
		t.Fatal(err)
	}
	after, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if strings.Contains(string(after), "Please fetch data first") {
		t.Error("view still shows the no-data notice after fetch")
	}
	if !strings.Contains(string(after), "Python code") {
		t.Error("view missing the code snippet section")
	}
}

func TestPlayerEndpoints(t *testing.T) {
	rig := newServerRig(t)
	if err := rig.ctrl.FetchAndProcess(context.Background()); err != nil {
		t.Fatal(err)
	}

	var state dashboard.PlayerState
	resp, err := http.PostForm(rig.api("/player/toggle"), nil)
	if err != nil {
		t.Fatal(err)
	}
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err := sonic.Unmarshal(raw, &state); err != nil {
		t.Fatal(err)
	}
	if !state.Playing || !state.Enabled {
		t.Errorf("after toggle: %+v", state)
	}

	resp, err = http.PostForm(rig.api("/player/frame"), url.Values{"frame": {"2"}})
	if err != nil {
		t.Fatal(err)
	}
	raw, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if err := sonic.Unmarshal(raw, &state); err != nil {
		t.Fatal(err)
	}
	if state.Current != 2 {
		t.Errorf("current after scrub = %d, want 2", state.Current)
	}
	if !state.Playing {
		t.Error("scrubbing stopped playback")
	}

	if resp := postForm(t, rig.api("/player/frame"), url.Values{"frame": {"x"}}); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad frame: status = %d, want 400", resp.StatusCode)
	}
}

func TestExportEndpoint(t *testing.T) {
	rig := newServerRig(t)

	// no data yet
	resp, err := http.Get(rig.api("/export?format=json"))
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("export without data: status = %d, want 409", resp.StatusCode)
	}
	if !strings.Contains(string(body), "Please fetch data first") {
		t.Errorf("export error body = %s", body)
	}

	if err := rig.ctrl.FetchAndProcess(context.Background()); err != nil {
		t.Fatal(err)
	}

	resp, err = http.Get(rig.api("/export?format=json"))
	if err != nil {
		t.Fatal(err)
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "swarmpal_tfa_") || !strings.Contains(cd, ".json") {
		t.Errorf("content disposition = %q", cd)
	}
	var tree map[string]any
	if err := sonic.Unmarshal(body, &tree); err != nil {
		t.Fatalf("export body is not JSON: %v", err)
	}

	resp, err = http.Get(rig.api("/export?format=parquet"))
	if err != nil {
		t.Fatal(err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "application/vnd.apache.parquet" {
		t.Errorf("parquet content type = %q", ct)
	}

	resp, err = http.Get(rig.api("/export?format=csv"))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown format: status = %d, want 400", resp.StatusCode)
	}
}

func TestLogEndpointRecordsRejections(t *testing.T) {
	rig := newServerRig(t)

	postForm(t, rig.api("/widgets"), url.Values{
		"name":  {"clean-window-size"},
		"value": {"nonsense"},
	})

	resp, err := http.Get(rig.api("/log"))
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "Rejected value") {
		t.Errorf("activity log missing rejection entry:\n%s", body)
	}
}

func TestIndexPage(t *testing.T) {
	rig := newServerRig(t)

	resp, err := http.Get(rig.ts.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("index status = %d", resp.StatusCode)
	}
	page := string(body)
	if !strings.Contains(page, "SwarmPAL TFA Quicklook") {
		t.Error("index missing dashboard title")
	}
	if !strings.Contains(page, `href="/dashboards/tfa"`) {
		t.Error("index missing dashboard link")
	}

	resp, err = http.Get(rig.ts.URL + "/no-such-page")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown path status = %d, want 404", resp.StatusCode)
	}
}

func TestDashboardPage(t *testing.T) {
	rig := newServerRig(t)

	resp, err := http.Get(rig.ts.URL + "/dashboards/tfa")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("page status = %d", resp.StatusCode)
	}
	page := string(body)
	for _, want := range []string{
		`name="w-spacecraft"`,
		`id="w-clean-window-size"`,
		`type="datetime-local"`,
		"Fetch and process",
		"/api/dashboards/tfa/export?format=parquet",
	} {
		if !strings.Contains(page, want) {
			t.Errorf("dashboard page missing %q", want)
		}
	}
}

func TestMethodNotAllowed(t *testing.T) {
	rig := newServerRig(t)

	if resp := postForm(t, rig.api("/state"), nil); resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("POST state: status = %d, want 405", resp.StatusCode)
	}
	resp, err := http.Get(rig.api("/fetch"))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("GET fetch: status = %d, want 405", resp.StatusCode)
	}
}

func TestUploadStoreSweep(t *testing.T) {
	dir := t.TempDir()
	store, err := NewUploadStore(dir)
	if err != nil {
		t.Fatal(err)
	}

	path, err := store.Save(strings.NewReader("old"), "old.cdf")
	if err != nil {
		t.Fatal(err)
	}
	stale := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(path, stale, stale); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Save(strings.NewReader("fresh"), "fresh.cdf"); err != nil {
		t.Fatal(err)
	}

	if removed := store.Sweep(24 * time.Hour); removed != 1 {
		t.Errorf("Sweep removed %d files, want 1", removed)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("stale upload still present after sweep")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("upload dir has %d entries after sweep, want 1", len(entries))
	}
}
