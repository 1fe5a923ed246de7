package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/polkiloo/resalebot/internal/config"
	"github.com/polkiloo/resalebot/internal/notify"
	testhelpers "github.com/polkiloo/resalebot/internal/test"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newTestRuntime(t *testing.T) (*ResaleFacade, *notify.Poller, *notify.Dispatcher) {
	t.Helper()
	facade, _, _, _, queue := newFacade()
	logger := discardLogger()
	poller := notify.NewPoller(facade, notify.NewDeduplicator(), queue, 10*time.Millisecond, logger)
	dispatcher := notify.NewDispatcher(facade, testhelpers.NewMessengerStub(), queue, 0, logger)
	return facade, poller, dispatcher
}

func TestNewHTTPServer(t *testing.T) {
	cfg := &config.Config{RunAddress: ":9999"}
	router := gin.New()
	server := newHTTPServer(serverParams{Config: cfg, Router: router})
	if server.Addr != ":9999" {
		t.Fatalf("expected address :9999, got %q", server.Addr)
	}
	if server.Handler != router {
		t.Fatalf("expected handler to be router")
	}
}

func TestNewActionRouterRegistersHandlers(t *testing.T) {
	facade, _, _ := newTestRuntime(t)
	router := newActionRouter(routerParams{
		Facade: facade,
		Client: testhelpers.NewMessengerStub(),
		Logger: discardLogger(),
	})
	if router == nil {
		t.Fatal("expected action router instance")
	}
}

func TestNewPollerAndDispatcherUseConfig(t *testing.T) {
	facade, _, _ := newTestRuntime(t)
	logger := discardLogger()
	cfg := &config.Config{PollInterval: 15 * time.Second, SendDelay: 50 * time.Millisecond}
	queue := notify.NewQueue(1)

	poller := newPoller(pollerParams{
		Facade: facade,
		Dedup:  notify.NewDeduplicator(),
		Queue:  queue,
		Config: cfg,
		Logger: logger,
	})
	if poller == nil {
		t.Fatal("expected poller instance")
	}

	dispatcher := newDispatcher(dispatcherParams{
		Facade: facade,
		Client: testhelpers.NewMessengerStub(),
		Queue:  queue,
		Config: cfg,
		Logger: logger,
	})
	if dispatcher == nil {
		t.Fatal("expected dispatcher instance")
	}
}

func TestRegisterLifecycleStartStop(t *testing.T) {
	recorder := &testhelpers.LifecycleRecorder{}
	shutdowner := &testhelpers.ShutdownerStub{Called: make(chan struct{}, 1)}
	facade, poller, dispatcher := newTestRuntime(t)
	server := &http.Server{Addr: "127.0.0.1:0", Handler: http.NewServeMux()}

	registerLifecycle(lifecycleParams{
		Lifecycle:  recorder,
		Shutdowner: shutdowner,
		Logger:     discardLogger(),
		Server:     server,
		Poller:     poller,
		Dispatcher: dispatcher,
		Facade:     facade,
		Config:     &config.Config{SellerIDs: []string{"100"}, ShutdownTimeout: 100 * time.Millisecond},
	})

	if len(recorder.Hooks) != 1 {
		t.Fatalf("expected one hook registered, got %d", len(recorder.Hooks))
	}

	hook := recorder.Hooks[0]
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := hook.OnStart(ctx); err != nil {
		t.Fatalf("on start failed: %v", err)
	}

	active, err := facade.IsActiveSeller(context.Background(), "100")
	if err != nil || !active {
		t.Fatalf("expected env seller to be synced, got %v err=%v", active, err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = hook.OnStop(context.Background())
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected on stop to finish")
	}
}

func TestRegisterLifecycleShutdownOnServerError(t *testing.T) {
	recorder := &testhelpers.LifecycleRecorder{}
	shutdowner := &testhelpers.ShutdownerStub{Called: make(chan struct{}, 1)}
	facade, poller, dispatcher := newTestRuntime(t)

	server := &http.Server{Addr: "bad addr"}

	registerLifecycle(lifecycleParams{
		Lifecycle:  recorder,
		Shutdowner: shutdowner,
		Logger:     discardLogger(),
		Server:     server,
		Poller:     poller,
		Dispatcher: dispatcher,
		Facade:     facade,
		Config:     &config.Config{ShutdownTimeout: time.Second},
	})

	hook := recorder.Hooks[0]
	if err := hook.OnStart(context.Background()); err != nil {
		t.Fatalf("on start returned error: %v", err)
	}

	select {
	case <-shutdowner.Called:
	case <-time.After(time.Second):
		t.Fatal("expected shutdown to be triggered on server error")
	}

	_ = hook.OnStop(context.Background())
}

func TestLifecycleRecorderAppend(t *testing.T) {
	recorder := &testhelpers.LifecycleRecorder{}
	hook := fx.Hook{}
	recorder.Append(hook)
	if len(recorder.Hooks) != 1 {
		t.Fatalf("expected hook to be appended")
	}
}

func TestShutdownerStub(t *testing.T) {
	shutdowner := &testhelpers.ShutdownerStub{Called: make(chan struct{}, 1)}
	if err := shutdowner.Shutdown(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	select {
	case <-shutdowner.Called:
	default:
		t.Fatal("expected shutdown notification")
	}
}
