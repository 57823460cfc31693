package httpapi

import (
	"encoding/json"
	"io"
	"net/http"

	"golang.org/x/net/websocket"
)

// handleNotificationStream pushes toasts over a websocket. Entries after the
// ?after sequence are replayed first, then live entries follow. Frames sent
// by the client are read and discarded; the stream ends when the client
// disconnects or the request context ends.
func (h *Handler) handleNotificationStream(w http.ResponseWriter, r *http.Request) {
	_, loc := localizerFor(r)
	after := parseSeq(r.URL.Query().Get("after"))
	feed := h.study.Feed()

	websocket.Handler(func(conn *websocket.Conn) {
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			_, _ = io.Copy(io.Discard, conn)
		}()
		defer func() {
			_ = conn.Close()
			<-closed
		}()

		live, cancel := feed.Subscribe(h.streamBuffer)
		defer cancel()

		encoder := json.NewEncoder(conn)
		last := after
		for _, entry := range feed.Since(after) {
			if err := encoder.Encode(notificationView(loc, entry)); err != nil {
				return
			}
			last = entry.Seq
		}

		ctx := conn.Request().Context()
		for {
			select {
			case <-closed:
				return
			case <-ctx.Done():
				return
			case entry, ok := <-live:
				if !ok {
					return
				}
				if entry.Seq <= last {
					continue
				}
				if err := encoder.Encode(notificationView(loc, entry)); err != nil {
					h.logf("toast stream write: %v", err)
					return
				}
				last = entry.Seq
			}
		}
	}).ServeHTTP(w, r)
}
