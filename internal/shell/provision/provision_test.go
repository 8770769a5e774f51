package provision

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pressbox/pressbox/internal/core/compose"
	"github.com/pressbox/pressbox/internal/core/health"
	"github.com/pressbox/pressbox/internal/core/instance"
	"github.com/pressbox/pressbox/internal/core/ports"
	"github.com/pressbox/pressbox/internal/shell/docker"
	"github.com/pressbox/pressbox/internal/shell/snapshot"
	"github.com/pressbox/pressbox/internal/shell/workspace"
	"github.com/pressbox/pressbox/internal/shell/wp"
)

// =============================================================================
// Fakes
// =============================================================================

type fakeStacks struct {
	started         []string
	stopped         []string
	removed         []string
	removedVolumes  map[string][]string
	reconciled      []string
	reconciledPaths map[string]string
	states          map[string][]health.ContainerState
	startErr        error
	reconcileErr    error
	statesErr       error
}

func newFakeStacks() *fakeStacks {
	return &fakeStacks{
		removedVolumes:  make(map[string][]string),
		reconciledPaths: make(map[string]string),
		states:          make(map[string][]health.ContainerState),
	}
}

func (f *fakeStacks) StartStack(ctx context.Context, inst *instance.Instance, stack *compose.ParsedStack) ([]docker.ContainerInfo, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	f.started = append(f.started, inst.Name)
	return nil, nil
}

func (f *fakeStacks) StopStack(ctx context.Context, instanceName string) error {
	f.stopped = append(f.stopped, instanceName)
	return nil
}

func (f *fakeStacks) RemoveStack(ctx context.Context, instanceName string, volumes []string) error {
	f.removed = append(f.removed, instanceName)
	f.removedVolumes[instanceName] = volumes
	return nil
}

func (f *fakeStacks) ReconcileOwnership(ctx context.Context, instanceName, containerPath string) error {
	if f.reconcileErr != nil {
		return f.reconcileErr
	}
	f.reconciled = append(f.reconciled, instanceName)
	f.reconciledPaths[instanceName] = containerPath
	return nil
}

func (f *fakeStacks) StackStates(ctx context.Context, instanceName string) ([]health.ContainerState, error) {
	if f.statesErr != nil {
		return nil, f.statesErr
	}
	return f.states[instanceName], nil
}

type fakeSite struct {
	installs       []wp.InstallParams
	imports        []string
	searchReplaces [][2]string
	optionUpdates  map[string]string
	optionGets     map[string]string
	rewriteFlushes int
	installErr     error
	importErr      error
}

func newFakeSite() *fakeSite {
	return &fakeSite{
		optionUpdates: make(map[string]string),
		optionGets:    make(map[string]string),
	}
}

func (f *fakeSite) IsInstalled(ctx context.Context, instanceName string) (bool, error) {
	return len(f.installs) > 0, nil
}

func (f *fakeSite) CoreInstall(ctx context.Context, instanceName string, p wp.InstallParams) error {
	if f.installErr != nil {
		return f.installErr
	}
	f.installs = append(f.installs, p)
	return nil
}

func (f *fakeSite) DBImport(ctx context.Context, instanceName, containerPath string) error {
	if f.importErr != nil {
		return f.importErr
	}
	f.imports = append(f.imports, containerPath)
	return nil
}

func (f *fakeSite) SearchReplace(ctx context.Context, instanceName, oldURL, newURL string) error {
	f.searchReplaces = append(f.searchReplaces, [2]string{oldURL, newURL})
	return nil
}

func (f *fakeSite) OptionGet(ctx context.Context, instanceName, key string) (string, error) {
	return f.optionGets[key], nil
}

func (f *fakeSite) OptionUpdate(ctx context.Context, instanceName, key, value string) error {
	f.optionUpdates[key] = value
	return nil
}

func (f *fakeSite) RewriteFlush(ctx context.Context, instanceName string) error {
	f.rewriteFlushes++
	return nil
}

type fakeGate struct {
	containersErr   error
	dbErr           error
	installedErr    error
	containersCalls int
	dbCalls         int
	installedCalls  int
	httpCalls       int
	httpOK          bool
}

func (f *fakeGate) WaitContainers(ctx context.Context, instanceName string, expected []string) error {
	f.containersCalls++
	return f.containersErr
}

func (f *fakeGate) WaitDatabase(ctx context.Context, instanceName string) error {
	f.dbCalls++
	return f.dbErr
}

func (f *fakeGate) WaitInstalled(ctx context.Context, instanceName string) error {
	f.installedCalls++
	return f.installedErr
}

func (f *fakeGate) ConfirmHTTP(ctx context.Context, url string) bool {
	f.httpCalls++
	return f.httpOK
}

// =============================================================================
// Test Harness
// =============================================================================

type harness struct {
	p      *Provisioner
	ws     *workspace.Workspace
	stacks *fakeStacks
	site   *fakeSite
	gate   *fakeGate
	bound  map[int]bool
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := &harness{
		ws:     workspace.New(t.TempDir(), logger),
		stacks: newFakeStacks(),
		site:   newFakeSite(),
		gate:   &fakeGate{httpOK: true},
		bound:  make(map[int]bool),
	}
	h.p = New(h.ws, h.stacks, h.site, h.gate, Options{
		Bound: func(port int) bool { return h.bound[port] },
	}, logger)
	return h
}

// seedInstance registers an existing instance with a real stack file.
func (h *harness) seedInstance(t *testing.T, name string, port int, status instance.Status) *instance.Instance {
	t.Helper()
	require.NoError(t, h.ws.EnsureLayout())
	dir, err := h.ws.CreateInstanceDir(name)
	require.NoError(t, err)

	data, err := compose.GenerateStack(compose.StackConfig{
		Name:        name,
		PrimaryPort: port,
		AdminPort:   port + 100,
	})
	require.NoError(t, err)
	require.NoError(t, h.ws.WriteStack(name, data))

	inst, err := instance.New(name, port, port+100, dir)
	require.NoError(t, err)
	inst.Status = status
	require.NoError(t, h.ws.SaveInstance(inst))
	return inst
}

// =============================================================================
// Create Tests
// =============================================================================

func TestCreate_Success(t *testing.T) {
	h := newHarness(t)

	inst, err := h.p.Create(context.Background(), CreateParams{Name: "My Blog!"})
	require.NoError(t, err)

	// Name sanitized, first free port picked, admin port derived
	assert.Equal(t, "my-blog", inst.Name)
	assert.Equal(t, 8080, inst.PrimaryPort)
	assert.Equal(t, 8180, inst.AdminPort)
	assert.Equal(t, instance.StatusReady, inst.Status)

	// The stack landed on disk and publishes the allocated port
	stack, err := h.ws.ParseStack("my-blog")
	require.NoError(t, err)
	port, err := stack.PrimaryPort()
	require.NoError(t, err)
	assert.Equal(t, 8080, port)

	// Persisted metadata survived
	loaded, err := h.ws.LoadInstance("my-blog")
	require.NoError(t, err)
	assert.Equal(t, instance.StatusReady, loaded.Status)

	// The stack was started and the gate stages all ran
	assert.Equal(t, []string{"my-blog"}, h.stacks.started)
	assert.Equal(t, 1, h.gate.containersCalls)
	assert.Equal(t, 1, h.gate.dbCalls)
	assert.Equal(t, 1, h.gate.installedCalls)

	// WordPress installed against the instance URL with default identity,
	// then rewrite rules flushed exactly once
	require.Len(t, h.site.installs, 1)
	assert.Equal(t, "http://localhost:8080", h.site.installs[0].URL)
	assert.Equal(t, DefaultAdminUser, h.site.installs[0].AdminUser)
	assert.Equal(t, "my-blog", h.site.installs[0].Title)
	assert.Equal(t, 1, h.site.rewriteFlushes)
}

func TestCreate_AllocatorRespectsSiblingsAndHost(t *testing.T) {
	h := newHarness(t)
	h.seedInstance(t, "blog", 8082, instance.StatusStopped)
	h.bound[8080] = true
	h.bound[8081] = true

	inst, err := h.p.Create(context.Background(), CreateParams{Name: "shop"})
	require.NoError(t, err)

	// 8080/8081 host-bound, 8082 claimed by the stopped sibling's compose
	// file, so the lowest free port is 8083
	assert.Equal(t, 8083, inst.PrimaryPort)
	assert.Equal(t, 8183, inst.AdminPort)
}

func TestCreate_ExplicitPortBypassesAllocator(t *testing.T) {
	h := newHarness(t)
	// Even a bound port is accepted; explicit means the user knows best
	h.bound[9000] = true

	inst, err := h.p.Create(context.Background(), CreateParams{Name: "pinned", Port: 9000})
	require.NoError(t, err)
	assert.Equal(t, 9000, inst.PrimaryPort)
	assert.Equal(t, 9100, inst.AdminPort)
}

func TestCreate_ExplicitPortOutOfRange(t *testing.T) {
	h := newHarness(t)

	for _, port := range []int{80, 1023, 65536} {
		_, err := h.p.Create(context.Background(), CreateParams{Name: "pinned", Port: port})
		require.Error(t, err)
		assert.ErrorIs(t, err, ports.ErrPortOutOfRange)
	}

	// Validation failed before anything was created
	assert.False(t, h.ws.Exists("pinned"))
	assert.Empty(t, h.stacks.started)
}

func TestCreate_InvalidName(t *testing.T) {
	h := newHarness(t)

	_, err := h.p.Create(context.Background(), CreateParams{Name: "!!!"})
	require.Error(t, err)
	assert.ErrorIs(t, err, instance.ErrInvalidName)
}

func TestCreate_DuplicateName(t *testing.T) {
	h := newHarness(t)
	h.seedInstance(t, "blog", 8080, instance.StatusReady)

	_, err := h.p.Create(context.Background(), CreateParams{Name: "blog"})
	require.Error(t, err)
	assert.ErrorIs(t, err, workspace.ErrInstanceExists)
}

func TestCreate_PortRangeExhausted(t *testing.T) {
	h := newHarness(t)
	h.p.rng = ports.Range{Start: 8080, End: 8082}
	for port := 8080; port <= 8082; port++ {
		h.bound[port] = true
	}

	_, err := h.p.Create(context.Background(), CreateParams{Name: "blog"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrNoPortAvailable)
	assert.False(t, h.ws.Exists("blog"))
}

func TestCreate_RollsBackOnStartFailure(t *testing.T) {
	h := newHarness(t)
	h.stacks.startErr = assert.AnError

	_, err := h.p.Create(context.Background(), CreateParams{Name: "blog"})
	require.Error(t, err)

	// Directory gone, stack teardown attempted with volumes
	assert.False(t, h.ws.Exists("blog"))
	assert.Contains(t, h.stacks.removed, "blog")
	assert.ElementsMatch(t, []string{"db_data", "wp_core"}, h.stacks.removedVolumes["blog"])
}

func TestCreate_RollsBackOnGateFailure(t *testing.T) {
	h := newHarness(t)
	h.gate.dbErr = assert.AnError

	_, err := h.p.Create(context.Background(), CreateParams{Name: "blog"})
	require.Error(t, err)

	assert.False(t, h.ws.Exists("blog"))
	assert.Contains(t, h.stacks.removed, "blog")
	// The gate never reached later stages
	assert.Zero(t, h.gate.installedCalls)
	assert.Empty(t, h.site.installs)
}

func TestCreate_HTTPConfidenceFailureIsNotFatal(t *testing.T) {
	h := newHarness(t)
	h.gate.httpOK = false

	inst, err := h.p.Create(context.Background(), CreateParams{Name: "blog"})
	require.NoError(t, err)
	assert.Equal(t, instance.StatusReady, inst.Status)
	assert.Equal(t, 1, h.gate.httpCalls)
}

// =============================================================================
// Import Tests
// =============================================================================

func writeDump(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "site.sql")
	require.NoError(t, os.WriteFile(path, []byte("INSERT INTO wp_options VALUES (1);"), 0o644))
	return path
}

func TestImport_Success(t *testing.T) {
	h := newHarness(t)
	h.site.optionGets["siteurl"] = "https://prod.example.com"
	dump := writeDump(t)

	inst, err := h.p.Import(context.Background(), ImportParams{
		CreateParams: CreateParams{Name: "prod-copy"},
		DumpPath:     dump,
	})
	require.NoError(t, err)
	assert.Equal(t, instance.StatusReady, inst.Status)

	// The dump was replayed from inside wp-content
	require.Len(t, h.site.imports, 1)
	assert.Equal(t, "/var/www/html/wp-content/database.sql", h.site.imports[0])

	// Origin URLs rewritten to the local address
	require.Len(t, h.site.searchReplaces, 1)
	assert.Equal(t, [2]string{"https://prod.example.com", "http://localhost:8080"}, h.site.searchReplaces[0])
	assert.Equal(t, "http://localhost:8080", h.site.optionUpdates["siteurl"])
	assert.Equal(t, "http://localhost:8080", h.site.optionUpdates["home"])
	assert.Equal(t, 1, h.site.rewriteFlushes)

	// The staged dump copy was cleaned up
	_, err = os.Stat(filepath.Join(h.ws.ContentDir("prod-copy"), "database.sql"))
	assert.True(t, os.IsNotExist(err))
}

func TestImport_DumpMissing(t *testing.T) {
	h := newHarness(t)

	_, err := h.p.Import(context.Background(), ImportParams{
		CreateParams: CreateParams{Name: "prod-copy"},
		DumpPath:     "/nonexistent/site.sql",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDumpNotFound)

	// Failed before allocating anything
	assert.False(t, h.ws.Exists("prod-copy"))
	assert.Empty(t, h.stacks.started)
}

func TestImport_SameOriginSkipsRewrite(t *testing.T) {
	h := newHarness(t)
	h.site.optionGets["siteurl"] = "http://localhost:8080"
	dump := writeDump(t)

	_, err := h.p.Import(context.Background(), ImportParams{
		CreateParams: CreateParams{Name: "local-copy"},
		DumpPath:     dump,
	})
	require.NoError(t, err)
	assert.Empty(t, h.site.searchReplaces)
	// siteurl/home still pinned explicitly
	assert.Equal(t, "http://localhost:8080", h.site.optionUpdates["siteurl"])
}

func TestImport_RollsBackOnImportFailure(t *testing.T) {
	h := newHarness(t)
	h.site.importErr = assert.AnError
	dump := writeDump(t)

	_, err := h.p.Import(context.Background(), ImportParams{
		CreateParams: CreateParams{Name: "prod-copy"},
		DumpPath:     dump,
	})
	require.Error(t, err)
	assert.False(t, h.ws.Exists("prod-copy"))
	assert.Contains(t, h.stacks.removed, "prod-copy")
}

func TestImport_SnapshotArchive(t *testing.T) {
	h := newHarness(t)
	h.site.optionGets["siteurl"] = "https://prod.example.com"

	srcContent := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(srcContent, "themes", "custom"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(srcContent, "themes", "custom", "style.css"), []byte("body {}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(srcContent, "database.sql"), []byte("-- dump"), 0o644))
	archive := filepath.Join(t.TempDir(), "prod.tar.gz")
	require.NoError(t, snapshot.Pack(archive, snapshot.Manifest{
		InstanceName: "prod",
		SiteURL:      "https://prod.example.com",
	}, srcContent))

	inst, err := h.p.Import(context.Background(), ImportParams{
		CreateParams: CreateParams{Name: "prod-copy"},
		DumpPath:     archive,
	})
	require.NoError(t, err)
	assert.Equal(t, instance.StatusReady, inst.Status)

	// wp-content came out of the archive into the new instance
	css, err := os.ReadFile(filepath.Join(h.ws.ContentDir("prod-copy"), "themes", "custom", "style.css"))
	require.NoError(t, err)
	assert.Equal(t, "body {}", string(css))

	// Dump replayed and the staged copy cleaned up
	require.Len(t, h.site.imports, 1)
	_, err = os.Stat(filepath.Join(h.ws.ContentDir("prod-copy"), "database.sql"))
	assert.True(t, os.IsNotExist(err))

	// Origin rewritten to the local address
	require.Len(t, h.site.searchReplaces, 1)
	assert.Equal(t, "https://prod.example.com", h.site.searchReplaces[0][0])
}

func TestImport_CorruptArchive(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(t.TempDir(), "broken.tar.gz")
	require.NoError(t, os.WriteFile(path, []byte("not a tarball"), 0o644))

	_, err := h.p.Import(context.Background(), ImportParams{
		CreateParams: CreateParams{Name: "broken-copy"},
		DumpPath:     path,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, snapshot.ErrInvalidArchive)

	// Rolled back like any other seed failure
	assert.False(t, h.ws.Exists("broken-copy"))
	assert.Contains(t, h.stacks.removed, "broken-copy")
}

// =============================================================================
// Lifecycle Tests
// =============================================================================

func TestStart_Success(t *testing.T) {
	h := newHarness(t)
	h.seedInstance(t, "blog", 8080, instance.StatusStopped)

	inst, err := h.p.Start(context.Background(), "blog")
	require.NoError(t, err)
	assert.Equal(t, instance.StatusReady, inst.Status)
	assert.Equal(t, []string{"blog"}, h.stacks.started)

	loaded, err := h.ws.LoadInstance("blog")
	require.NoError(t, err)
	assert.Equal(t, instance.StatusReady, loaded.Status)
}

func TestStart_AlreadyRunning(t *testing.T) {
	h := newHarness(t)
	h.seedInstance(t, "blog", 8080, instance.StatusReady)
	h.stacks.states["blog"] = []health.ContainerState{
		{Service: "db", Status: "running", Health: "healthy"},
		{Service: "wordpress", Status: "running"},
	}

	_, err := h.p.Start(context.Background(), "blog")
	require.NoError(t, err)
	assert.Empty(t, h.stacks.started, "a running instance must not be restarted")
}

func TestStart_NotFound(t *testing.T) {
	h := newHarness(t)

	_, err := h.p.Start(context.Background(), "ghost")
	require.Error(t, err)
	assert.ErrorIs(t, err, workspace.ErrInstanceNotFound)
}

func TestStart_GateFailureMarksFailed(t *testing.T) {
	h := newHarness(t)
	h.seedInstance(t, "blog", 8080, instance.StatusStopped)
	h.gate.dbErr = assert.AnError

	_, err := h.p.Start(context.Background(), "blog")
	require.Error(t, err)

	// No rollback on start; the instance survives in failed state
	assert.True(t, h.ws.Exists("blog"))
	loaded, err := h.ws.LoadInstance("blog")
	require.NoError(t, err)
	assert.Equal(t, instance.StatusFailed, loaded.Status)
	assert.NotEmpty(t, loaded.ErrorMessage)
}

func TestStop(t *testing.T) {
	h := newHarness(t)
	h.seedInstance(t, "blog", 8080, instance.StatusReady)

	inst, err := h.p.Stop(context.Background(), "blog")
	require.NoError(t, err)
	assert.Equal(t, instance.StatusStopped, inst.Status)
	assert.Equal(t, []string{"blog"}, h.stacks.stopped)

	loaded, err := h.ws.LoadInstance("blog")
	require.NoError(t, err)
	assert.Equal(t, instance.StatusStopped, loaded.Status)
	assert.NotNil(t, loaded.StoppedAt)
}

func TestRemove(t *testing.T) {
	h := newHarness(t)
	h.seedInstance(t, "blog", 8080, instance.StatusReady)

	require.NoError(t, h.p.Remove(context.Background(), "blog", RemoveOptions{}))

	assert.False(t, h.ws.Exists("blog"))
	assert.Contains(t, h.stacks.removed, "blog")
	assert.ElementsMatch(t, []string{"db_data", "wp_core"}, h.stacks.removedVolumes["blog"])
	// Ownership reconciled before the directory went
	assert.Equal(t, []string{"blog"}, h.stacks.reconciled)
	assert.Equal(t, wp.ContentMount, h.stacks.reconciledPaths["blog"])
}

func TestRemove_KeepFiles(t *testing.T) {
	h := newHarness(t)
	h.seedInstance(t, "blog", 8080, instance.StatusReady)

	require.NoError(t, h.p.Remove(context.Background(), "blog", RemoveOptions{KeepFiles: true}))

	// Docker resources went, the directory stayed, no chown needed
	assert.Contains(t, h.stacks.removed, "blog")
	assert.ElementsMatch(t, []string{"db_data", "wp_core"}, h.stacks.removedVolumes["blog"])
	assert.True(t, h.ws.Exists("blog"))
	assert.Empty(t, h.stacks.reconciled)

	loaded, err := h.ws.LoadInstance("blog")
	require.NoError(t, err)
	assert.Equal(t, instance.StatusRemoved, loaded.Status)

	// The kept instance still lists, as removed
	statuses, err := h.p.List(context.Background())
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.Equal(t, instance.StatusRemoved, statuses[0].Live)
}

func TestRemove_ReconcileFailureIgnored(t *testing.T) {
	// A stopped stack has no container to exec in; removal proceeds anyway.
	h := newHarness(t)
	h.seedInstance(t, "blog", 8080, instance.StatusStopped)
	h.stacks.reconcileErr = errors.New("container is not running")

	require.NoError(t, h.p.Remove(context.Background(), "blog", RemoveOptions{}))
	assert.False(t, h.ws.Exists("blog"))
	assert.Contains(t, h.stacks.removed, "blog")
}

func TestRemove_NotFound(t *testing.T) {
	h := newHarness(t)

	err := h.p.Remove(context.Background(), "ghost", RemoveOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, workspace.ErrInstanceNotFound)
}

func TestRemove_BrokenMetadata(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.ws.EnsureLayout())
	dir, err := h.ws.CreateInstanceDir("broken")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "instance.json"), []byte("{corrupt"), 0o644))

	require.NoError(t, h.p.Remove(context.Background(), "broken", RemoveOptions{}))
	assert.False(t, h.ws.Exists("broken"))
}

func TestRemoveAll(t *testing.T) {
	h := newHarness(t)
	h.seedInstance(t, "alpha", 8080, instance.StatusReady)
	h.seedInstance(t, "beta", 8081, instance.StatusStopped)
	h.seedInstance(t, "gamma", 8082, instance.StatusFailed)

	require.NoError(t, h.p.RemoveAll(context.Background()))

	names, err := h.ws.ListNames()
	require.NoError(t, err)
	assert.Empty(t, names)
	assert.ElementsMatch(t, []string{"alpha", "beta", "gamma"}, h.stacks.removed)
}

func TestRemoveAll_EmptyWorkspace(t *testing.T) {
	h := newHarness(t)
	assert.NoError(t, h.p.RemoveAll(context.Background()))
}

// =============================================================================
// Status Tests
// =============================================================================

func TestList_LiveStatusWins(t *testing.T) {
	h := newHarness(t)
	h.seedInstance(t, "running", 8080, instance.StatusReady)
	h.seedInstance(t, "downed", 8081, instance.StatusReady)
	h.stacks.states["running"] = []health.ContainerState{
		{Service: "db", Status: "running", Health: "healthy"},
		{Service: "wordpress", Status: "running"},
	}
	// "downed" has no containers: metadata says ready, reality says stopped

	statuses, err := h.p.List(context.Background())
	require.NoError(t, err)
	require.Len(t, statuses, 2)

	byName := make(map[string]instance.Status)
	for _, st := range statuses {
		byName[st.Instance.Name] = st.Live
	}
	assert.Equal(t, instance.StatusReady, byName["running"])
	assert.Equal(t, instance.StatusStopped, byName["downed"])
}

func TestList_DockerUnreachableFallsBack(t *testing.T) {
	h := newHarness(t)
	h.seedInstance(t, "blog", 8080, instance.StatusReady)
	h.stacks.statesErr = assert.AnError

	statuses, err := h.p.List(context.Background())
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.Equal(t, instance.StatusReady, statuses[0].Live)
}

func TestInfo(t *testing.T) {
	h := newHarness(t)
	h.seedInstance(t, "blog", 8080, instance.StatusReady)
	h.stacks.states["blog"] = []health.ContainerState{
		{Service: "db", Status: "running", Health: "healthy"},
	}

	st, err := h.p.Info(context.Background(), "blog")
	require.NoError(t, err)
	assert.Equal(t, "blog", st.Instance.Name)
	assert.Equal(t, instance.StatusReady, st.Live)
	require.Len(t, st.Services, 1)
}

func TestInfo_FailedInstanceStaysFailed(t *testing.T) {
	h := newHarness(t)
	h.seedInstance(t, "blog", 8080, instance.StatusFailed)
	h.stacks.states["blog"] = []health.ContainerState{
		{Service: "db", Status: "running", Health: "healthy"},
	}

	st, err := h.p.Info(context.Background(), "blog")
	require.NoError(t, err)
	assert.Equal(t, instance.StatusFailed, st.Live)
}

// =============================================================================
// Error Tests
// =============================================================================

func TestWorkflowError(t *testing.T) {
	err := &WorkflowError{Op: "create", Instance: "blog", Err: assert.AnError}
	assert.Contains(t, err.Error(), "create blog")
	assert.ErrorIs(t, err, assert.AnError)

	err = &WorkflowError{Op: "remove", Err: assert.AnError}
	assert.NotContains(t, err.Error(), "  ")
}
