package main

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"micctl/audio"
	"micctl/common"
	"micctl/common/logger"
	"micctl/gate"
)

//go:embed web/*
var webFiles embed.FS

const (
	wsSendBuffer = 32
	wsWriteWait  = 2 * time.Second
	portAttempts = 100
)

// WebServer serves the control panel, the JSON API and the websocket
// event feed for one AppState.
type WebServer struct {
	app      *AppState
	upgrader websocket.Upgrader

	clientsMu sync.Mutex
	clients   map[*wsClient]struct{}

	srv *http.Server
}

type wsClient struct {
	conn *websocket.Conn
	send chan common.Event
}

type commandRequest struct {
	Command string          `json:"command"`
	Args    json.RawMessage `json:"args"`
}

// NewWebServer creates the server and subscribes it to app's state changes.
func NewWebServer(app *AppState) *WebServer {
	ws := &WebServer{
		app: app,
		upgrader: websocket.Upgrader{
			CheckOrigin: sameOrigin,
		},
		clients: make(map[*wsClient]struct{}),
	}
	app.AddObserver(func(change StateChange) {
		ws.broadcast(common.NewEvent(change.Type, change.Data))
	})
	return ws
}

// Handler returns the routes of the control panel.
func (ws *WebServer) Handler() http.Handler {
	mux := http.NewServeMux()

	webFS, err := fs.Sub(webFiles, "web")
	if err != nil {
		logger.Error("Failed to create web filesystem: %v", err)
	} else {
		mux.Handle("GET /", http.FileServer(http.FS(webFS)))
	}

	mux.HandleFunc("GET /api/state", ws.handleState)
	mux.HandleFunc("GET /api/devices", ws.handleDevices)
	mux.HandleFunc("GET /api/virtual-mic", ws.handleVirtualMic)
	mux.HandleFunc("GET /api/config", ws.handleConfig)
	mux.HandleFunc("GET /api/messages", ws.handleMessages)
	mux.HandleFunc("POST /api/command", ws.handleCommand)
	mux.HandleFunc("GET /ws", ws.handleWebSocket)
	return mux
}

// Start listens on addr, or on the next free port after it, and serves in
// the background. It returns the address actually bound.
func (ws *WebServer) Start(addr string) (string, error) {
	ln, err := listenFrom(addr)
	if err != nil {
		return "", err
	}
	ws.srv = &http.Server{
		Handler:           ws.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	bound := ln.Addr().String()
	logger.Info("Starting web server on http://%s", bound)

	go func() {
		if err := ws.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Web server failed: %v", err)
		}
	}()
	return bound, nil
}

// Shutdown stops accepting requests and closes every websocket.
func (ws *WebServer) Shutdown(ctx context.Context) error {
	ws.clientsMu.Lock()
	for c := range ws.clients {
		c.conn.Close()
	}
	ws.clientsMu.Unlock()

	if ws.srv == nil {
		return nil
	}
	return ws.srv.Shutdown(ctx)
}

func listenFrom(addr string) (net.Listener, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, common.Wrap(common.KindConfig, err, "invalid web address "+addr)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, common.Wrap(common.KindConfig, err, "invalid web port "+portStr)
	}
	if port == 0 {
		return net.Listen("tcp", addr)
	}

	var lastErr error
	for p := port; p < port+portAttempts; p++ {
		ln, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(p)))
		if err == nil {
			return ln, nil
		}
		lastErr = err
	}
	return nil, common.Wrap(common.KindSystem, lastErr, fmt.Sprintf("no free port from %d", port))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("Writing response: %v", err)
	}
}

func statusFor(err error) int {
	switch common.KindOf(err) {
	case common.KindInvalidArgument, common.KindHotkey, common.KindConfig:
		return http.StatusBadRequest
	case common.KindDeviceNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), common.ErrorReply{
		Error:   common.KindOf(err).String(),
		Message: err.Error(),
	})
}

func (ws *WebServer) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ws.app.RuntimeStatus())
}

func (ws *WebServer) handleDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := ws.app.ListDevices()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, devices)
}

func (ws *WebServer) handleVirtualMic(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ws.app.VirtualMicStatus())
}

func (ws *WebServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ws.app.Config())
}

func (ws *WebServer) handleMessages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ws.app.Messages())
}

// sameOrigin accepts requests without an Origin header (CLI clients) and
// browser requests whose origin is the panel itself.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

func (ws *WebServer) handleCommand(w http.ResponseWriter, r *http.Request) {
	if !sameOrigin(r) {
		writeJSON(w, http.StatusForbidden, common.ErrorReply{
			Error:   common.KindInvalidArgument.String(),
			Message: "cross-origin command rejected",
		})
		return
	}
	if mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err != nil || mt != "application/json" {
		writeJSON(w, http.StatusUnsupportedMediaType, common.ErrorReply{
			Error:   common.KindInvalidArgument.String(),
			Message: "commands must be sent as application/json",
		})
		return
	}

	var cmd commandRequest
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		writeError(w, common.Wrap(common.KindInvalidArgument, err, "invalid JSON"))
		return
	}
	logger.Debug("Command %s", cmd.Command)

	if err := ws.dispatch(cmd); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ws.app.RuntimeStatus())
}

func decodeArgs(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return common.Errorf(common.KindInvalidArgument, "missing args")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return common.Wrap(common.KindInvalidArgument, err, "invalid args")
	}
	return nil
}

func (ws *WebServer) dispatch(cmd commandRequest) error {
	switch cmd.Command {
	case common.CommandStartEngine:
		return ws.app.StartEngine()
	case common.CommandStopEngine:
		ws.app.StopEngine()
		return nil
	case common.CommandSetGate:
		var args common.SetGateArgs
		if err := decodeArgs(cmd.Args, &args); err != nil {
			return err
		}
		ws.app.SetGate(args.Open, args.Source)
		return nil
	case common.CommandToggleGate:
		var args common.SetGateArgs
		if len(cmd.Args) > 0 {
			if err := decodeArgs(cmd.Args, &args); err != nil {
				return err
			}
		}
		ws.app.ToggleGate(args.Source)
		return nil
	case common.CommandSetHotkey:
		var args common.SetHotkeyArgs
		if err := decodeArgs(cmd.Args, &args); err != nil {
			return err
		}
		mode, err := gate.ParseMode(args.Mode)
		if err != nil {
			return err
		}
		return ws.app.RegisterHotkey(args.Accelerator, mode)
	case common.CommandSaveRoute:
		var args common.SaveRouteArgs
		if err := decodeArgs(cmd.Args, &args); err != nil {
			return err
		}
		return ws.app.SaveRoute(audio.Route{
			InputDeviceID:  args.InputDeviceID,
			OutputDeviceID: args.BridgeOutputDeviceID,
		})
	case common.CommandSetLaunchOnStartup:
		var args common.SetEnabledArgs
		if err := decodeArgs(cmd.Args, &args); err != nil {
			return err
		}
		return ws.app.SetLaunchOnStartup(args.Enabled)
	case common.CommandSetMinimizeToTray:
		var args common.SetEnabledArgs
		if err := decodeArgs(cmd.Args, &args); err != nil {
			return err
		}
		return ws.app.SetMinimizeToTray(args.Enabled)
	default:
		return common.Errorf(common.KindInvalidArgument, "unknown command %q", cmd.Command)
	}
}

func (ws *WebServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed: %v", err)
		return
	}
	c := &wsClient{conn: conn, send: make(chan common.Event, wsSendBuffer)}

	// Initial state goes out before the client can see any broadcast.
	status := ws.app.RuntimeStatus()
	c.send <- common.NewEvent(common.EventGateStateChanged, status.GateState)
	c.send <- common.NewEvent(common.EventEngineStateChanged, status)

	ws.clientsMu.Lock()
	ws.clients[c] = struct{}{}
	ws.clientsMu.Unlock()

	done := make(chan struct{})
	go ws.writePump(c, done)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	ws.remove(c)
	<-done
}

func (ws *WebServer) writePump(c *wsClient, done chan<- struct{}) {
	defer close(done)
	for ev := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := c.conn.WriteJSON(ev); err != nil {
			logger.Debug("WebSocket write failed: %v", err)
			c.conn.Close()
			ws.remove(c)
			for range c.send {
			}
			return
		}
	}
	c.conn.Close()
}

func (ws *WebServer) remove(c *wsClient) {
	ws.clientsMu.Lock()
	defer ws.clientsMu.Unlock()
	if _, ok := ws.clients[c]; ok {
		delete(ws.clients, c)
		close(c.send)
	}
}

// broadcast queues ev for every client without blocking. A client whose
// queue is full misses the event.
func (ws *WebServer) broadcast(ev common.Event) {
	ws.clientsMu.Lock()
	defer ws.clientsMu.Unlock()
	for c := range ws.clients {
		select {
		case c.send <- ev:
		default:
			logger.Warn("Dropping %s event for slow websocket client", ev.Type)
		}
	}
}
