package obs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
)

func TestAuthResponse(t *testing.T) {
	t.Parallel()

	// Vector produced by an independent implementation of the
	// obs-websocket v5 challenge scheme.
	got := authResponse("supersecret", "mC9eKGRNOrLW", "odDprY0rtTa5")
	assert.Equal(t, "etRZAg0qc5AZF0NFsCrpAzM38j0B4NM4SmlfU0dIFc0=", got)
}

func TestIsConnectionError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"eof", io.EOF, true},
		{"wrapped eof", fmt.Errorf("start stream: %w", io.EOF), true},
		{"unexpected eof", io.ErrUnexpectedEOF, true},
		{"closed network connection", net.ErrClosed, true},
		{"connection refused", fmt.Errorf("dial: %w", syscall.ECONNREFUSED), true},
		{"connection reset", &net.OpError{Op: "read", Err: syscall.ECONNRESET}, true},
		{"broken pipe", syscall.EPIPE, true},
		{"websocket close", &websocket.CloseError{Code: websocket.CloseAbnormalClosure}, true},
		{"context deadline", context.DeadlineExceeded, true},
		{"request rejected", &RequestError{RequestType: "StartStream", Code: 500}, false},
		{"wrapped request rejected", fmt.Errorf("op: %w", &RequestError{RequestType: "StopStream"}), false},
		{"context cancelled", context.Canceled, false},
		{"plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, IsConnectionError(tt.err))
		})
	}
}

func TestRequestErrorMessage(t *testing.T) {
	t.Parallel()

	withComment := &RequestError{RequestType: "StartStream", Code: 500, Comment: "output already active"}
	assert.Equal(t, "obs request StartStream failed: output already active (code 500)", withComment.Error())

	bare := &RequestError{RequestType: "StopStream", Code: 501}
	assert.Equal(t, "obs request StopStream failed with code 501", bare.Error())
}
