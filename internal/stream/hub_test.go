package stream

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/hllmltyl/geri-donusum/internal/cache"
	"github.com/hllmltyl/geri-donusum/internal/point"
	"github.com/hllmltyl/geri-donusum/internal/session"
	"github.com/hllmltyl/geri-donusum/internal/visibility"
)

func testHub(t *testing.T) (*Hub, *cache.Cache, *session.Manager) {
	t.Helper()
	c := cache.New()
	sessions := session.NewManager(nil)
	h := NewHub(c, sessions)
	t.Cleanup(h.Close)
	return h, c, sessions
}

func recvFrame(t *testing.T, client *Client) Frame {
	t.Helper()
	select {
	case payload := <-client.Send:
		var frame Frame
		if err := json.Unmarshal(payload, &frame); err != nil {
			t.Fatalf("decode frame: %v", err)
		}
		return frame
	case <-time.After(time.Second):
		t.Fatalf("no frame received")
		return Frame{}
	}
}

func seedPoints(c *cache.Cache) {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	c.Apply([]point.Change{
		{Kind: point.ChangeAdded, Point: point.RecyclingPoint{
			ID: "p1", Title: "Pil Kutusu", Category: point.CategoryBattery,
			Verified: true, CreatedBy: point.SystemAuthor, CreatedAt: base,
		}},
		{Kind: point.ChangeAdded, Point: point.RecyclingPoint{
			ID: "p2", Title: "Cam Kumbarası", Category: point.CategoryGlass,
			Verified: false, CreatedBy: "u1", CreatedAt: base.Add(time.Minute),
		}},
	})
}

func TestRegisterPushesInitialFrame(t *testing.T) {
	h, c, _ := testHub(t)
	seedPoints(c)

	client := h.Register(visibility.Anonymous)
	defer h.Unregister(client)

	frame := recvFrame(t, client)
	if frame.Type != "points" {
		t.Fatalf("frame type = %q, want points", frame.Type)
	}
	if len(frame.Points) != 1 || frame.Points[0].ID != "p1" {
		t.Fatalf("anonymous initial frame = %+v, want only p1", frame.Points)
	}
}

func TestBroadcastRendersPerViewer(t *testing.T) {
	h, c, _ := testHub(t)

	anon := h.Register(visibility.Anonymous)
	author := h.Register(visibility.ViewerContext{Identity: "u1", Role: visibility.RoleUser})
	defer h.Unregister(anon)
	defer h.Unregister(author)
	recvFrame(t, anon)
	recvFrame(t, author)

	seedPoints(c) // Apply fans out through the hub subscription

	if got := recvFrame(t, anon); len(got.Points) != 1 {
		t.Fatalf("anonymous broadcast = %d points, want 1", len(got.Points))
	}
	if got := recvFrame(t, author); len(got.Points) != 2 {
		t.Fatalf("author broadcast = %d points, want 2 (own pending included)", len(got.Points))
	}
}

func TestFilterMessageNarrowsFrame(t *testing.T) {
	h, c, _ := testHub(t)
	seedPoints(c)

	client := h.Register(visibility.ViewerContext{Identity: "u1", Role: visibility.RoleUser})
	defer h.Unregister(client)
	recvFrame(t, client)

	h.HandleMessage(client, []byte(`{"type":"filter","query":"pil"}`))
	frame := recvFrame(t, client)
	if len(frame.Points) != 1 || frame.Points[0].ID != "p1" {
		t.Fatalf("filtered frame = %+v, want only p1", frame.Points)
	}
}

func TestApplyMessageEmitsFitFrame(t *testing.T) {
	h, c, _ := testHub(t)
	seedPoints(c)

	client := h.Register(visibility.Anonymous)
	defer h.Unregister(client)
	recvFrame(t, client)

	h.HandleMessage(client, []byte(`{"type":"apply","query":"pil"}`))
	points := recvFrame(t, client)
	if points.Type != "points" || len(points.Points) != 1 {
		t.Fatalf("apply points frame = %+v", points)
	}
	fit := recvFrame(t, client)
	if fit.Type != "fit" || fit.Fit == nil || len(fit.Fit.Coordinates) != 1 {
		t.Fatalf("apply fit frame = %+v", fit)
	}
}

func TestViewportMessageDrivesSessionMachine(t *testing.T) {
	h, _, sessions := testHub(t)

	viewer := visibility.ViewerContext{Identity: "u1", Role: visibility.RoleUser}
	client := h.Register(viewer)
	defer h.Unregister(client)
	recvFrame(t, client)

	machine := sessions.ForViewer(viewer)
	if err := machine.StartAdd(nil); err != nil {
		t.Fatalf("start add: %v", err)
	}

	h.HandleMessage(client, []byte(`{"type":"viewport","lat":41.01,"lng":28.98}`))

	draft := machine.Draft()
	if draft == nil || draft.Coordinate == nil {
		t.Fatalf("viewport message did not reach the draft")
	}
	if draft.Coordinate.Lat != 41.01 || draft.Coordinate.Lng != 28.98 {
		t.Fatalf("draft coordinate = %+v", *draft.Coordinate)
	}
}

func TestMalformedMessageIgnored(t *testing.T) {
	h, c, _ := testHub(t)
	seedPoints(c)

	client := h.Register(visibility.Anonymous)
	defer h.Unregister(client)
	recvFrame(t, client)

	h.HandleMessage(client, []byte(`{not json`))
	select {
	case payload := <-client.Send:
		t.Fatalf("unexpected frame after malformed message: %s", payload)
	default:
	}
}

func TestUnregisterIsIdempotent(t *testing.T) {
	h, _, _ := testHub(t)

	client := h.Register(visibility.Anonymous)
	if h.ClientCount() != 1 {
		t.Fatalf("client count = %d, want 1", h.ClientCount())
	}
	h.Unregister(client)
	h.Unregister(client)
	if h.ClientCount() != 0 {
		t.Fatalf("client count = %d, want 0", h.ClientCount())
	}
}

func TestDisconnectDuringBroadcast(t *testing.T) {
	h, c, _ := testHub(t)

	stop := make(chan struct{})
	var wg sync.WaitGroup

	// Writers hammer the cache so every disconnect races a broadcast.
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; ; i++ {
				select {
				case <-stop:
					return
				default:
				}
				c.Apply([]point.Change{{Kind: point.ChangeAdded, Point: point.RecyclingPoint{
					ID: fmt.Sprintf("w%d-%d", w, i), Verified: true,
				}}})
			}
		}(w)
	}

	for i := 0; i < 200; i++ {
		clients := make([]*Client, 0, 32)
		for j := 0; j < 32; j++ {
			clients = append(clients, h.Register(visibility.Anonymous))
		}
		for _, client := range clients {
			h.Unregister(client)
		}
	}

	close(stop)
	wg.Wait()

	if h.ClientCount() != 0 {
		t.Fatalf("client count = %d, want 0", h.ClientCount())
	}
}

func TestDegradedFlagOnFrames(t *testing.T) {
	h, c, _ := testHub(t)
	seedPoints(c)
	c.SetDegraded(point.TransportError{Op: "subscribe"})

	client := h.Register(visibility.Anonymous)
	defer h.Unregister(client)

	if frame := recvFrame(t, client); !frame.Degraded {
		t.Fatalf("frame should carry the degraded flag")
	}
}
