// Package obs drives a local OBS Studio instance over its websocket
// control protocol: pointing it at an ingest endpoint, starting and
// stopping the stream output, and reloading sources while live.
package obs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"

	"github.com/gorilla/websocket"
)

// Input kinds and settings keys with dedicated refresh handling.
const (
	KindBrowserSource = "browser_source"
	SettingLocalFile  = "local_file"

	refreshButtonProperty = "refreshnocache"
)

// StreamTarget identifies the RTMP endpoint OBS should publish to.
// Service is an optional stream service label; when empty the endpoint
// is configured as a bare custom server.
type StreamTarget struct {
	Server  string
	Key     string
	Service string
}

// Transport is a single obs-websocket connection. Implementations are
// not safe for concurrent use; WSClient serializes all calls.
type Transport interface {
	StreamStatus(ctx context.Context) (bool, error)
	SetStreamServiceSettings(ctx context.Context, target StreamTarget) error
	StartStream(ctx context.Context) error
	StopStream(ctx context.Context) error
	InputSettings(ctx context.Context, inputName string) (map[string]any, string, error)
	SetInputSettings(ctx context.Context, inputName string, settings map[string]any, overlay bool) error
	PressInputPropertiesButton(ctx context.Context, inputName, propertyName string) error
	CurrentProgramScene(ctx context.Context) (string, error)
	Close() error
}

// RequestError is a request rejected by OBS at the protocol level.
// The connection itself is healthy; only the request was refused.
type RequestError struct {
	RequestType string
	Code        int
	Comment     string
}

func (e *RequestError) Error() string {
	if e.Comment != "" {
		return fmt.Sprintf("obs request %s failed: %s (code %d)", e.RequestType, e.Comment, e.Code)
	}
	return fmt.Sprintf("obs request %s failed with code %d", e.RequestType, e.Code)
}

// IsConnectionError reports whether err indicates a broken or absent
// connection, as opposed to a request OBS rejected.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return false
	}
	if errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
