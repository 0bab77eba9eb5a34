package supervisor

import (
	"context"
	"fmt"
	"time"
)

// Listener is the part of *fiber.App the HTTP service drives.
type Listener interface {
	Listen(addr string) error
	ShutdownWithContext(ctx context.Context) error
}

// HTTPService runs a Fiber app as a supervised service.
type HTTPService struct {
	app             Listener
	addr            string
	shutdownTimeout time.Duration
}

// NewHTTPService wraps app listening on addr.
func NewHTTPService(app Listener, addr string, shutdownTimeout time.Duration) *HTTPService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPService{app: app, addr: addr, shutdownTimeout: shutdownTimeout}
}

// Serve implements suture.Service. A listener that exits on its own is a
// failure; cancellation triggers a graceful shutdown.
func (h *HTTPService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- h.app.Listen(h.addr)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http listener failed: %w", err)
		}
		return fmt.Errorf("http listener on %s stopped unexpectedly", h.addr)

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
		defer cancel()
		if err := h.app.ShutdownWithContext(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown failed: %w", err)
		}
		<-errCh
		return ctx.Err()
	}
}

func (h *HTTPService) String() string {
	return "http-server " + h.addr
}
