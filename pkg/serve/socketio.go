package serve

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/moonrailgun/reqcraft/pkg/httputil"
)

// relayDrainWindow bounds how long a graceful close on one leg of the
// relay waits for the other leg's in-flight frames before the connection
// is torn down, per the spec's "pending frames are discarded after a
// 2-second drain window" rule.
const relayDrainWindow = 2 * time.Second

var sioUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleSocketioRelay bridges a browser WebSocket to an upstream
// Socket.IO/Engine.IO v4 server named by the ?target= query parameter.
// It uses gorilla/websocket for both legs, a deliberately different
// library from the notification channel's coder/websocket, matching the
// two-library split the teacher itself carries for distinct transport
// concerns.
func (s *Server) handleSocketioRelay(w http.ResponseWriter, r *http.Request) {
	targetRaw := r.URL.Query().Get("target")
	if targetRaw == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "missing target"})
		return
	}
	targetURL, err := url.Parse(targetRaw)
	if err != nil || !targetURL.IsAbs() {
		httputil.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "target must be an absolute URL"})
		return
	}
	switch targetURL.Scheme {
	case "http":
		targetURL.Scheme = "ws"
	case "https":
		targetURL.Scheme = "wss"
	}

	upstream, resp, err := websocket.DefaultDialer.Dial(targetURL.String(), nil)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadGateway, map[string]string{"error": "failed to reach target"})
		return
	}
	if resp != nil {
		defer func() { _ = resp.Body.Close() }()
	}
	defer func() { _ = upstream.Close() }()

	handshakeType, handshake, ok := readEngineIOHandshake(upstream)
	if !ok {
		httputil.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported Engine.IO protocol version"})
		return
	}

	browser, err := sioUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = browser.Close() }()

	// The handshake frame was already consumed off upstream to validate
	// its protocol version; the browser-side Engine.IO client still needs
	// it as its first frame before the bridge starts relaying.
	if err := browser.WriteMessage(handshakeType, handshake); err != nil {
		return
	}

	done := make(chan string, 2)
	go relayFrames("upstream", browser, upstream, done) // reads upstream, writes browser
	go relayFrames("browser", upstream, browser, done)  // reads browser, writes upstream
	closer := <-done

	// Graceful close: the side named here is the one whose read/write
	// just failed. Give the still-open side a short window to notice
	// and unwind on its own before forcing its read to unblock, which
	// discards whatever frame was in flight.
	var stillOpen *websocket.Conn
	if closer == "upstream" {
		stillOpen = browser
	} else {
		stillOpen = upstream
	}
	_ = stillOpen.SetReadDeadline(time.Now().Add(relayDrainWindow))
	<-done
}

// readEngineIOHandshake reads the first Engine.IO "open" packet from
// upstream and rejects anything but protocol v4's `0{"sid":...,"upgrades":
// [...],...}` shape, per the decision to support v4 only (a v2 handshake
// lacks the top-level "upgrades" array and uses a length-prefixed frame).
// On success it returns the frame so the caller can forward it verbatim
// to the browser leg once upgraded.
func readEngineIOHandshake(upstream *websocket.Conn) (int, []byte, bool) {
	msgType, data, err := upstream.ReadMessage()
	if err != nil {
		return 0, nil, false
	}
	payload := string(data)
	if !strings.HasPrefix(payload, "0{") || !strings.Contains(payload, `"upgrades"`) {
		return 0, nil, false
	}
	return msgType, data, true
}

// relayFrames copies every frame read from src to dst until either side
// errors or closes, then reports which named side initiated the stop.
func relayFrames(name string, dst, src *websocket.Conn, done chan<- string) {
	for {
		msgType, data, err := src.ReadMessage()
		if err != nil {
			done <- name
			return
		}
		if err := dst.WriteMessage(msgType, data); err != nil {
			done <- name
			return
		}
	}
}
