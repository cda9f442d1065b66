package proxy

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/JeffersonLab/dift-sub001/internal/framing"
	"github.com/JeffersonLab/dift-sub001/internal/wire"
	"github.com/JeffersonLab/dift-sub001/public/actor"
)

func startService(t *testing.T, cfg Config) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	svc := NewService(cfg, actor.NewContext(0, 32))
	done := make(chan error, 1)
	go func() { done <- svc.Start(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	time.Sleep(50 * time.Millisecond)
}

func dial(t *testing.T, addr string) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial %s: %v", addr, err)
	}
	return conn
}

func TestProxyForwardsToMatchingSubscriber(t *testing.T) {
	cfg := Config{Host: "127.0.0.1", PubPort: 19801, SubPort: 19802, ControlPort: 19803}
	startService(t, cfg)

	subConn := dial(t, "127.0.0.1:19802")
	defer subConn.Close()

	meta := wire.NewMeta(actor.MimeString)
	meta.Action = wire.ControlCommandSub
	metaBytes, err := wire.Encode(meta)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	subscribeFrames := [][]byte{[]byte(wire.ControlTopic), metaBytes, []byte("weather")}
	if err := framing.WriteMessage(subConn, subscribeFrames); err != nil {
		t.Fatalf("WriteMessage subscribe: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	pubConn := dial(t, "127.0.0.1:19801")
	defer pubConn.Close()

	payloadMeta := wire.NewMeta(actor.MimeString)
	payloadMetaBytes, err := wire.Encode(payloadMeta)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	msgFrames := [][]byte{[]byte("weather:temperature"), payloadMetaBytes, []byte("72F")}
	if err := framing.WriteMessage(pubConn, msgFrames); err != nil {
		t.Fatalf("WriteMessage publish: %v", err)
	}

	subConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	got, err := framing.ReadMessage(subConn)
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if string(got[0]) != "weather:temperature" || string(got[2]) != "72F" {
		t.Fatalf("unexpected forwarded frames: %q %q", got[0], got[2])
	}
}

func TestProxyDoesNotForwardUnmatchedTopic(t *testing.T) {
	cfg := Config{Host: "127.0.0.1", PubPort: 19804, SubPort: 19805, ControlPort: 19806}
	startService(t, cfg)

	subConn := dial(t, "127.0.0.1:19805")
	defer subConn.Close()

	meta := wire.NewMeta(actor.MimeString)
	meta.Action = wire.ControlCommandSub
	metaBytes, _ := wire.Encode(meta)
	subscribeFrames := [][]byte{[]byte(wire.ControlTopic), metaBytes, []byte("weather")}
	if err := framing.WriteMessage(subConn, subscribeFrames); err != nil {
		t.Fatalf("WriteMessage subscribe: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	pubConn := dial(t, "127.0.0.1:19804")
	defer pubConn.Close()

	payloadMeta := wire.NewMeta(actor.MimeString)
	payloadMetaBytes, _ := wire.Encode(payloadMeta)
	msgFrames := [][]byte{[]byte("traffic:jam"), payloadMetaBytes, []byte("I-95")}
	if err := framing.WriteMessage(pubConn, msgFrames); err != nil {
		t.Fatalf("WriteMessage publish: %v", err)
	}

	subConn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, err := framing.ReadMessage(subConn); err == nil {
		t.Fatalf("expected no message to be forwarded for an unmatched topic")
	}
}

func TestProxyControlPortEchoes(t *testing.T) {
	cfg := Config{Host: "127.0.0.1", PubPort: 19807, SubPort: 19808, ControlPort: 19809}
	startService(t, cfg)

	conn := dial(t, "127.0.0.1:19809")
	defer conn.Close()

	if err := framing.WriteMessage(conn, [][]byte{[]byte("ping")}); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	reply, err := framing.ReadMessage(conn)
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if string(reply[0]) != wire.ControlTopic {
		t.Fatalf("reply topic = %q, want %q", reply[0], wire.ControlTopic)
	}
}
