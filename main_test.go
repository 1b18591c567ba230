package main

import (
	"errors"
	"net/http"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// stubServer reports http.ErrServerClosed only once it has been shut down,
// like http.Server.ListenAndServe.
type stubServer struct {
	failWith error
	shutdown chan struct{}
	sent     chan struct{}
}

func newStubServer(failWith error) *stubServer {
	return &stubServer{failWith: failWith, shutdown: make(chan struct{}), sent: make(chan struct{})}
}

func (s *stubServer) Start(errChannel chan<- error) {
	defer close(s.sent)
	if s.failWith != nil {
		errChannel <- s.failWith
		return
	}
	<-s.shutdown
	errChannel <- http.ErrServerClosed
}

func (s *stubServer) ShutdownGracefully(timeout time.Duration) {
	if s.failWith == nil {
		close(s.shutdown)
	}
}

func TestServeStopsOnSignal(t *testing.T) {
	server := newStubServer(nil)
	interrupts := make(chan os.Signal, 1)
	interrupts <- syscall.SIGTERM

	err := serve(server, interrupts, time.Second, zerolog.Nop())
	if err == nil || err.Error() != syscall.SIGTERM.String() {
		t.Fatalf("serve = %v, want the signal", err)
	}

	select {
	case <-server.sent:
	case <-time.After(time.Second):
		t.Fatal("server blocked reporting its exit after shutdown")
	}
}

func TestServeStopsOnServerError(t *testing.T) {
	boom := errors.New("address in use")
	interrupts := make(chan os.Signal)

	err := serve(newStubServer(boom), interrupts, time.Second, zerolog.Nop())
	if !errors.Is(err, boom) {
		t.Fatalf("serve = %v, want %v", err, boom)
	}
	close(interrupts)
}
