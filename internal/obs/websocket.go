package obs

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// obs-websocket v5 opcodes.
const (
	opHello      = 0
	opIdentify   = 1
	opIdentified = 2
	opEvent      = 5
	opRequest    = 6
	opResponse   = 7
)

const rpcVersion = 1

// envelope is the outer obs-websocket message frame.
type envelope struct {
	Op int             `json:"op"`
	D  json.RawMessage `json:"d"`
}

type helloData struct {
	RPCVersion     int `json:"rpcVersion"`
	Authentication *struct {
		Challenge string `json:"challenge"`
		Salt      string `json:"salt"`
	} `json:"authentication"`
}

type identifyData struct {
	RPCVersion         int    `json:"rpcVersion"`
	Authentication     string `json:"authentication,omitempty"`
	EventSubscriptions int    `json:"eventSubscriptions"`
}

type requestFrame struct {
	RequestType string `json:"requestType"`
	RequestID   string `json:"requestId"`
	RequestData any    `json:"requestData,omitempty"`
}

type responseFrame struct {
	RequestType   string `json:"requestType"`
	RequestID     string `json:"requestId"`
	RequestStatus struct {
		Result  bool   `json:"result"`
		Code    int    `json:"code"`
		Comment string `json:"comment"`
	} `json:"requestStatus"`
	ResponseData json.RawMessage `json:"responseData"`
}

// wsTransport implements Transport over a gorilla websocket connection.
type wsTransport struct {
	conn    *websocket.Conn
	timeout time.Duration
}

// Dial connects to obs-websocket at host:port and performs the v5
// identify handshake. Events are not subscribed; the connection is
// used for requests only.
func Dial(ctx context.Context, host string, port int, password string, timeout time.Duration) (Transport, error) {
	u := url.URL{Scheme: "ws", Host: net.JoinHostPort(host, strconv.Itoa(port))}
	dialer := websocket.Dialer{
		HandshakeTimeout: timeout,
		Subprotocols:     []string{"obswebsocket.json"},
	}

	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial obs at %s: %w", u.Host, err)
	}

	t := &wsTransport{conn: conn, timeout: timeout}
	if err := t.identify(password); err != nil {
		conn.Close()
		return nil, err
	}
	return t, nil
}

// identify performs the Hello/Identify/Identified exchange.
func (t *wsTransport) identify(password string) error {
	var hello helloData
	if err := t.read(opHello, &hello); err != nil {
		return fmt.Errorf("failed to read obs hello: %w", err)
	}

	ident := identifyData{RPCVersion: rpcVersion}
	if hello.Authentication != nil {
		if password == "" {
			return fmt.Errorf("obs requires authentication but no password is configured")
		}
		ident.Authentication = authResponse(password, hello.Authentication.Challenge, hello.Authentication.Salt)
	}
	if err := t.write(opIdentify, ident); err != nil {
		return fmt.Errorf("failed to send obs identify: %w", err)
	}

	if err := t.read(opIdentified, nil); err != nil {
		return fmt.Errorf("obs identify rejected: %w", err)
	}
	return nil
}

// authResponse computes the obs-websocket authentication string:
// base64(sha256(base64(sha256(password + salt)) + challenge)).
func authResponse(password, challenge, salt string) string {
	secret := sha256.Sum256([]byte(password + salt))
	encoded := base64.StdEncoding.EncodeToString(secret[:])
	final := sha256.Sum256([]byte(encoded + challenge))
	return base64.StdEncoding.EncodeToString(final[:])
}

// read consumes frames until one with the wanted opcode arrives and
// decodes its payload into out when out is non-nil.
func (t *wsTransport) read(op int, out any) error {
	if err := t.conn.SetReadDeadline(time.Now().Add(t.timeout)); err != nil {
		return err
	}
	for {
		var env envelope
		if err := t.conn.ReadJSON(&env); err != nil {
			return err
		}
		if env.Op != op {
			continue
		}
		if out == nil {
			return nil
		}
		return json.Unmarshal(env.D, out)
	}
}

func (t *wsTransport) write(op int, d any) error {
	if err := t.conn.SetWriteDeadline(time.Now().Add(t.timeout)); err != nil {
		return err
	}
	data, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return t.conn.WriteJSON(envelope{Op: op, D: data})
}

// call sends one request and reads frames until the matching response
// arrives. Event frames and stale responses are skipped.
func (t *wsTransport) call(ctx context.Context, requestType string, in any, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	id := uuid.NewString()
	if err := t.write(opRequest, requestFrame{RequestType: requestType, RequestID: id, RequestData: in}); err != nil {
		return fmt.Errorf("failed to send %s: %w", requestType, err)
	}

	deadline := time.Now().Add(t.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := t.conn.SetReadDeadline(deadline); err != nil {
		return err
	}

	for {
		var env envelope
		if err := t.conn.ReadJSON(&env); err != nil {
			return fmt.Errorf("failed to read %s response: %w", requestType, err)
		}
		if env.Op != opResponse {
			continue
		}
		var resp responseFrame
		if err := json.Unmarshal(env.D, &resp); err != nil {
			return fmt.Errorf("failed to decode %s response: %w", requestType, err)
		}
		if resp.RequestID != id {
			continue
		}
		if !resp.RequestStatus.Result {
			return &RequestError{
				RequestType: requestType,
				Code:        resp.RequestStatus.Code,
				Comment:     resp.RequestStatus.Comment,
			}
		}
		if out == nil || len(resp.ResponseData) == 0 {
			return nil
		}
		return json.Unmarshal(resp.ResponseData, out)
	}
}

func (t *wsTransport) StreamStatus(ctx context.Context) (bool, error) {
	var out struct {
		OutputActive bool `json:"outputActive"`
	}
	if err := t.call(ctx, "GetStreamStatus", nil, &out); err != nil {
		return false, err
	}
	return out.OutputActive, nil
}

func (t *wsTransport) SetStreamServiceSettings(ctx context.Context, target StreamTarget) error {
	settings := map[string]any{
		"server": target.Server,
		"key":    target.Key,
	}
	if target.Service != "" {
		settings["service"] = target.Service
	}
	in := map[string]any{
		"streamServiceType":     "rtmp_custom",
		"streamServiceSettings": settings,
	}
	return t.call(ctx, "SetStreamServiceSettings", in, nil)
}

func (t *wsTransport) StartStream(ctx context.Context) error {
	return t.call(ctx, "StartStream", nil, nil)
}

func (t *wsTransport) StopStream(ctx context.Context) error {
	return t.call(ctx, "StopStream", nil, nil)
}

func (t *wsTransport) InputSettings(ctx context.Context, inputName string) (map[string]any, string, error) {
	var out struct {
		InputSettings map[string]any `json:"inputSettings"`
		InputKind     string         `json:"inputKind"`
	}
	in := map[string]any{"inputName": inputName}
	if err := t.call(ctx, "GetInputSettings", in, &out); err != nil {
		return nil, "", err
	}
	return out.InputSettings, out.InputKind, nil
}

func (t *wsTransport) SetInputSettings(ctx context.Context, inputName string, settings map[string]any, overlay bool) error {
	in := map[string]any{
		"inputName":     inputName,
		"inputSettings": settings,
		"overlay":       overlay,
	}
	return t.call(ctx, "SetInputSettings", in, nil)
}

func (t *wsTransport) PressInputPropertiesButton(ctx context.Context, inputName, propertyName string) error {
	in := map[string]any{"inputName": inputName, "propertyName": propertyName}
	return t.call(ctx, "PressInputPropertiesButton", in, nil)
}

func (t *wsTransport) CurrentProgramScene(ctx context.Context) (string, error) {
	var out struct {
		CurrentProgramSceneName string `json:"currentProgramSceneName"`
	}
	if err := t.call(ctx, "GetCurrentProgramScene", nil, &out); err != nil {
		return "", err
	}
	return out.CurrentProgramSceneName, nil
}

func (t *wsTransport) Close() error {
	return t.conn.Close()
}
