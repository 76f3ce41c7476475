package ipc_test

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"headphones/internal/config"
	"headphones/internal/daemon"
	"headphones/internal/ipc"
	"headphones/internal/postprocess"
	"headphones/internal/snatch"
	"headphones/internal/testsupport"
)

type stubScanner struct{}

func (stubScanner) CheckFolders(context.Context) ([]postprocess.Result, error) {
	return []postprocess.Result{{AlbumID: "album-1", Outcome: postprocess.OutcomeIncomplete}}, nil
}

type stubSearcher struct{}

func (stubSearcher) SearchWanted(context.Context) (int, error) { return 0, nil }

func TestIPCServerClient(t *testing.T) {
	env := newServerEnv(t)
	ctx, store, socket := env.ctx, env.store, env.socket

	client, err := ipc.Dial(socket)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() {
		client.Close()
	})

	startResp, err := client.Start()
	if err != nil {
		t.Fatalf("Start RPC failed: %v", err)
	}
	if !startResp.Started {
		t.Fatalf("expected Started=true, message=%s", startResp.Message)
	}

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if !status.Running {
		t.Fatal("expected daemon to be running")
	}
	if status.DatabasePath != store.Path() {
		t.Fatalf("unexpected database path %q", status.DatabasePath)
	}

	abbey := testsupport.AbbeyRoad()
	testsupport.SeedRelease(t, store, abbey)
	letItBe := abbey.Album
	letItBe.ID = "3a3a3a3a-0000-4000-8000-000000000001"
	letItBe.Title = "Let It Be"
	if err := store.UpsertAlbum(ctx, letItBe); err != nil {
		t.Fatalf("UpsertAlbum: %v", err)
	}
	pending := testsupport.NewSnatch(t, store, abbey.Album.ID, "Abbey Road", snatch.KindTorrent)
	done := testsupport.NewSnatch(t, store, letItBe.ID, "Let It Be", snatch.KindTorrent)
	if err := store.SetStatus(ctx, letItBe.ID, snatch.StatusProcessed); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	list, err := client.SnatchList([]string{"snatched"})
	if err != nil {
		t.Fatalf("SnatchList RPC failed: %v", err)
	}
	if len(list.Items) != 1 || list.Items[0].ID != pending.ID {
		t.Fatalf("unexpected snatch list: %+v", list.Items)
	}

	desc, err := client.SnatchDescribe(done.ID)
	if err != nil {
		t.Fatalf("SnatchDescribe RPC failed: %v", err)
	}
	if desc.Item.Status != string(snatch.StatusProcessed) {
		t.Fatalf("unexpected status %q", desc.Item.Status)
	}
	if _, err := client.SnatchDescribe(9999); err == nil {
		t.Fatal("expected error for unknown snatch")
	}

	scan, err := client.Scan(false)
	if err != nil {
		t.Fatalf("Scan RPC failed: %v", err)
	}
	if len(scan.Results) != 1 || scan.Results[0].Outcome != string(postprocess.OutcomeIncomplete) {
		t.Fatalf("unexpected scan results: %+v", scan.Results)
	}

	cleared, err := client.SnatchClear(nil)
	if err != nil {
		t.Fatalf("SnatchClear RPC failed: %v", err)
	}
	if cleared.Removed != 1 {
		t.Fatalf("expected one cleared snatch, got %d", cleared.Removed)
	}

	notify, err := client.TestNotification()
	if err != nil {
		t.Fatalf("TestNotification RPC failed: %v", err)
	}
	if notify.Sent {
		t.Fatal("expected no notification without a topic")
	}

	stopResp, err := client.Stop()
	if err != nil {
		t.Fatalf("Stop RPC failed: %v", err)
	}
	if !stopResp.Stopped {
		t.Fatal("expected Stopped=true")
	}
}

type serverEnv struct {
	ctx    context.Context
	store  *snatch.Store
	daemon *daemon.Daemon
	socket string
	server *ipc.Server
}

func newServerEnv(t *testing.T) *serverEnv {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	settings := testsupport.Settings(t, cfg)
	factory := func(config.Settings, *snatch.Store, *slog.Logger) daemon.Workers {
		return daemon.Workers{Scanner: stubScanner{}, Searcher: stubSearcher{}}
	}
	d, err := daemon.New(cfg, store, nil,
		daemon.WithWorkerFactory(factory),
		daemon.WithIntervals(time.Hour, time.Hour),
	)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(d.Stop)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	if err := settings.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	socket := filepath.Join(settings.General.DataDir, "headphones.sock")
	srv, err := ipc.NewServer(ctx, socket, d, nil)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC server test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)
	return &serverEnv{ctx: ctx, store: store, daemon: d, socket: socket, server: srv}
}

func TestNewServerRefusesLiveSocket(t *testing.T) {
	env := newServerEnv(t)
	if _, err := ipc.NewServer(env.ctx, env.socket, env.daemon, nil); !errors.Is(err, ipc.ErrSocketInUse) {
		t.Fatalf("expected ErrSocketInUse, got %v", err)
	}
}

func TestCloseDisconnectsClientsAndFreesSocket(t *testing.T) {
	env := newServerEnv(t)
	client, err := ipc.Dial(env.socket)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	defer client.Close()
	if _, err := client.Status(); err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}

	env.server.Close()
	if _, err := client.Status(); err == nil {
		t.Fatal("expected calls to fail after Close")
	}

	srv, err := ipc.NewServer(env.ctx, env.socket, env.daemon, nil)
	if err != nil {
		t.Fatalf("rebind after Close: %v", err)
	}
	srv.Close()
}
