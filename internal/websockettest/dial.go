// Package websockettest provides dialing helpers for WebSocket endpoint tests.
package websockettest

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
)

// URL rewrites an httptest server URL into its WebSocket equivalent.
func URL(httpURL, path string) string {
	wsURL := strings.Replace(httpURL, "http", "ws", 1)
	return wsURL + path
}

// Dial establishes a WebSocket connection for tests.
func Dial(urlStr string, header http.Header) (*websocket.Conn, *http.Response, error) {
	return websocket.DefaultDialer.Dial(urlStr, header)
}

// DialIgnoringPongs establishes a WebSocket connection and disables the
// automatic ping/pong responses so that tests can simulate an unresponsive
// peer.
func DialIgnoringPongs(urlStr string, header http.Header) (*websocket.Conn, *http.Response, error) {
	conn, resp, err := websocket.DefaultDialer.Dial(urlStr, header)
	if err != nil {
		return nil, resp, err
	}
	conn.SetPingHandler(func(string) error { return nil })
	conn.SetPongHandler(func(string) error { return nil })
	return conn, resp, nil
}
