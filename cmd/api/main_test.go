package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localboost/localboost/config"
	"github.com/localboost/localboost/internal/app"
	"github.com/localboost/localboost/pkg/logger"
)

// fakeApp embeds the interface so only the lifecycle methods need bodies
type fakeApp struct {
	app.AppInterface

	initErr     error
	startErr    error
	shutdownErr error
	stopped     chan struct{}

	mu              sync.Mutex
	shutdownCalled  bool
	shutdownTimeout time.Duration
}

func newFakeApp() *fakeApp {
	return &fakeApp{stopped: make(chan struct{})}
}

func (f *fakeApp) Initialize() error { return f.initErr }

func (f *fakeApp) Start() error {
	if f.startErr != nil {
		return f.startErr
	}
	<-f.stopped
	return http.ErrServerClosed
}

func (f *fakeApp) Shutdown(context.Context) error {
	f.mu.Lock()
	f.shutdownCalled = true
	f.mu.Unlock()
	close(f.stopped)
	return f.shutdownErr
}

func (f *fakeApp) SetShutdownTimeout(d time.Duration) { f.shutdownTimeout = d }
func (f *fakeApp) GetActiveRequestCount() int64       { return 0 }

func (f *fakeApp) factory() NewAppFunc {
	return func(*config.Config, ...app.AppOption) app.AppInterface { return f }
}

// withSignal makes the first signal.Notify call receive sig
func withSignal(t *testing.T, sig os.Signal) {
	original := signalNotify
	t.Cleanup(func() { signalNotify = original })

	var once sync.Once
	signalNotify = func(c chan<- os.Signal, _ ...os.Signal) {
		once.Do(func() {
			go func() {
				time.Sleep(20 * time.Millisecond)
				c <- sig
			}()
		})
	}
}

func TestRunServer_GracefulShutdown(t *testing.T) {
	withSignal(t, syscall.SIGTERM)
	f := newFakeApp()

	err := runServer(&config.Config{}, logger.NewTestLogger(t), f.factory())
	require.NoError(t, err)

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.True(t, f.shutdownCalled)
	assert.Equal(t, 45*time.Second, f.shutdownTimeout)
}

func TestRunServer_ShutdownError(t *testing.T) {
	withSignal(t, os.Interrupt)
	f := newFakeApp()
	f.shutdownErr = errors.New("database close failed")

	err := runServer(&config.Config{}, logger.NewTestLogger(t), f.factory())
	assert.EqualError(t, err, "database close failed")
}

func TestRunServer_InitializeError(t *testing.T) {
	f := newFakeApp()
	f.initErr = errors.New("failed to ping database")

	err := runServer(&config.Config{}, logger.NewTestLogger(t), f.factory())
	assert.EqualError(t, err, "failed to ping database")
}

func TestRunServer_StartError(t *testing.T) {
	original := signalNotify
	t.Cleanup(func() { signalNotify = original })
	signalNotify = func(chan<- os.Signal, ...os.Signal) {}

	f := newFakeApp()
	f.startErr = errors.New("listen tcp :8080: bind: address already in use")

	err := runServer(&config.Config{}, logger.NewTestLogger(t), f.factory())
	assert.Error(t, err)
}
