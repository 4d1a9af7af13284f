package http

import (
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/lokalconnect/internal/core/domain"
	"github.com/samirrijal/lokalconnect/internal/pkg/geospatial"
	"github.com/samirrijal/lokalconnect/internal/pkg/metrics"
)

// wsMessage is sent by clients to change what they receive.
//
//	{"action":"subscribe","kind":"created"}
//	{"action":"watch","bbox":[13.3,52.4,13.5,52.6]}
type wsMessage struct {
	Action string                  `json:"action"` // subscribe | unsubscribe | watch | unwatch
	Kind   string                  `json:"kind"`   // created | updated | deleted, "" = all
	BBox   *geospatial.BoundingBox `json:"bbox,omitempty"`
}

// wsSubject maps an event kind to its NATS subject filter.
func wsSubject(kind string) (string, bool) {
	switch kind {
	case "":
		return "items.>", true
	case string(domain.ItemCreated), string(domain.ItemUpdated), string(domain.ItemDeleted):
		return "items." + kind + ".>", true
	default:
		return "", false
	}
}

// eventInBounds reports whether an event should reach a client watching bbox.
// Deletions carry no geometry and are always delivered.
func eventInBounds(data []byte, bbox *geospatial.BoundingBox) bool {
	if bbox == nil {
		return true
	}
	var event domain.ItemEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return false
	}
	if event.Kind == domain.ItemDeleted {
		return true
	}
	c, err := event.Item.Center()
	if err != nil {
		return false
	}
	return bbox.Contains(c.Coordinates)
}

// overlapping returns the current subjects that would deliver the same events
// as subject. Kind subjects are disjoint, so only the catch-all overlaps: it
// replaces every kind subject, and any kind subject replaces it.
func overlapping(subs map[string]*nats.Subscription, subject string) []string {
	all, _ := wsSubject("")
	var out []string
	for s := range subs {
		if s != subject && (s == all || subject == all) {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

// WebSocketHandler relays item events from NATS to connected clients.
// New connections receive every event until they narrow the stream.
func WebSocketHandler(nc *nats.Conn) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		remoteAddr := c.RemoteAddr().String()
		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()
		slog.Info("ws client connected", "remote", remoteAddr)

		if nc == nil {
			_ = c.WriteJSON(map[string]string{"error": "event stream unavailable"})
			return
		}

		var mu sync.Mutex
		var watch *geospatial.BoundingBox
		subs := make(map[string]*nats.Subscription)

		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		relay := func(msg *nats.Msg) {
			mu.Lock()
			bbox := watch
			mu.Unlock()
			if eventInBounds(msg.Data, bbox) {
				_ = writeJSON(json.RawMessage(msg.Data))
			}
		}

		defaultSubject, _ := wsSubject("")
		sub, err := nc.Subscribe(defaultSubject, relay)
		if err != nil {
			slog.Warn("ws default subscribe failed", "error", err)
			return
		}
		subs[defaultSubject] = sub

		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, raw, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(raw, &m); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}

			switch m.Action {
			case "watch":
				if m.BBox == nil {
					_ = writeJSON(map[string]string{"error": "watch requires bbox"})
					continue
				}
				mu.Lock()
				watch = m.BBox
				mu.Unlock()
				_ = writeJSON(map[string]interface{}{"status": "watching", "bbox": m.BBox})
				continue
			case "unwatch":
				mu.Lock()
				watch = nil
				mu.Unlock()
				_ = writeJSON(map[string]string{"status": "unwatched"})
				continue
			}

			subject, ok := wsSubject(m.Kind)
			if !ok {
				_ = writeJSON(map[string]string{"error": "unknown kind: " + m.Kind})
				continue
			}

			switch m.Action {
			case "subscribe":
				if _, exists := subs[subject]; exists {
					_ = writeJSON(map[string]string{"status": "already subscribed", "subject": subject})
					continue
				}
				s, err := nc.Subscribe(subject, relay)
				if err != nil {
					_ = writeJSON(map[string]string{"error": "subscribe failed: " + err.Error()})
					continue
				}
				for _, other := range overlapping(subs, subject) {
					_ = subs[other].Unsubscribe()
					delete(subs, other)
				}
				subs[subject] = s
				_ = writeJSON(map[string]string{"status": "subscribed", "subject": subject})

			case "unsubscribe":
				if s, exists := subs[subject]; exists {
					_ = s.Unsubscribe()
					delete(subs, subject)
					_ = writeJSON(map[string]string{"status": "unsubscribed", "subject": subject})
				} else {
					_ = writeJSON(map[string]string{"error": "not subscribed to " + subject})
				}

			default:
				_ = writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}

		close(done)
		for _, s := range subs {
			_ = s.Unsubscribe()
		}
		slog.Info("ws client disconnected", "remote", remoteAddr)
	}
}
