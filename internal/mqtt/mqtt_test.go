package mqtt

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"dcim-server/internal/config"
)

// unreachableConfig points at a port nothing listens on.
func unreachableConfig() config.Config {
	return config.Config{
		MQTTBroker:   "127.0.0.1",
		MQTTPort:     1,
		MQTTClientID: "dcim-server-test",
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPublisher_PublishJSON_NotConnected(t *testing.T) {
	p := NewPublisher(unreachableConfig(), discardLogger())
	t.Cleanup(p.Disconnect)

	err := p.PublishJSON("dcim/sensors", map[string]string{"k": "v"})
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("PublishJSON() error = %v, want %v", err, ErrNotConnected)
	}
}

func TestPublisher_IsConnected_Initially(t *testing.T) {
	p := NewPublisher(unreachableConfig(), discardLogger())
	t.Cleanup(p.Disconnect)

	if p.IsConnected() {
		t.Fatal("IsConnected() = true before Connect, want false")
	}
}

func TestPublisher_Connect_RespectsContext(t *testing.T) {
	p := NewPublisher(unreachableConfig(), discardLogger())
	t.Cleanup(p.Disconnect)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := p.Connect(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Connect() error = %v, want %v", err, context.DeadlineExceeded)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("Connect() took %s after deadline", elapsed)
	}
	if p.IsConnected() {
		t.Error("IsConnected() = true after failed Connect, want false")
	}
}

func TestPublisher_Disconnect_Idempotent(t *testing.T) {
	p := NewPublisher(unreachableConfig(), discardLogger())

	p.Disconnect()
	p.Disconnect()

	if p.IsConnected() {
		t.Fatal("IsConnected() = true after Disconnect, want false")
	}
}

func TestPublisher_Connect_AfterDisconnect(t *testing.T) {
	p := NewPublisher(unreachableConfig(), discardLogger())
	p.Disconnect()

	err := p.Connect(context.Background())
	if !errors.Is(err, ErrStopped) {
		t.Fatalf("Connect() error = %v, want %v", err, ErrStopped)
	}
}

// fakeBroker accepts MQTT connections on addr and answers CONNECT with a
// successful CONNACK and PINGREQ with PINGRESP.
type fakeBroker struct {
	ln       net.Listener
	accepted atomic.Int32
}

func startFakeBroker(t *testing.T, addr string) *fakeBroker {
	t.Helper()

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		t.Fatalf("listen %s: %v", addr, err)
	}
	b := &fakeBroker{ln: ln}
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			b.accepted.Add(1)
			go b.serve(conn)
		}
	}()
	return b
}

func (b *fakeBroker) serve(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	for {
		header, err := r.ReadByte()
		if err != nil {
			return
		}
		length, err := readRemainingLength(r)
		if err != nil {
			return
		}
		if _, err := io.CopyN(io.Discard, r, int64(length)); err != nil {
			return
		}

		switch header >> 4 {
		case 1: // CONNECT
			_, err = conn.Write([]byte{0x20, 0x02, 0x00, 0x00})
		case 12: // PINGREQ
			_, err = conn.Write([]byte{0xD0, 0x00})
		case 14: // DISCONNECT
			return
		}
		if err != nil {
			return
		}
	}
}

func readRemainingLength(r *bufio.Reader) (int, error) {
	var length, shift int
	for i := 0; i < 4; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		length |= int(b&0x7f) << shift
		if b&0x80 == 0 {
			return length, nil
		}
		shift += 7
	}
	return 0, errors.New("malformed remaining length")
}

func freeLocalAddr(t *testing.T) (string, int) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen :0: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("split %q: %v", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("port %q: %v", portStr, err)
	}
	return addr, port
}

func TestPublisher_Connect_RetriesAfterTimeout(t *testing.T) {
	prev := connectRetryInterval
	connectRetryInterval = 200 * time.Millisecond
	t.Cleanup(func() { connectRetryInterval = prev })

	addr, port := freeLocalAddr(t)
	cfg := config.Config{MQTTBroker: "127.0.0.1", MQTTPort: port, MQTTClientID: "dcim-server-retry"}

	p := NewPublisher(cfg, discardLogger())
	t.Cleanup(p.Disconnect)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	if err := p.Connect(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Connect() with broker down error = %v, want %v", err, context.DeadlineExceeded)
	}

	broker := startFakeBroker(t, addr)

	deadline := time.Now().Add(5 * time.Second)
	for !p.IsConnected() {
		if time.Now().After(deadline) {
			t.Fatalf("IsConnected() still false after broker came up (connections accepted: %d)", broker.accepted.Load())
		}
		time.Sleep(20 * time.Millisecond)
	}

	// A later Connect joins the same attempt instead of starting another.
	if err := p.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() after recovery error = %v, want nil", err)
	}
}

func TestPublisher_Connect_BrokerUp(t *testing.T) {
	addr, port := freeLocalAddr(t)
	startFakeBroker(t, addr)

	cfg := config.Config{MQTTBroker: "127.0.0.1", MQTTPort: port, MQTTClientID: "dcim-server-up"}
	p := NewPublisher(cfg, discardLogger())
	t.Cleanup(p.Disconnect)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.Connect(ctx); err != nil {
		t.Fatalf("Connect() error = %v, want nil", err)
	}
	if !p.IsConnected() {
		t.Fatal("IsConnected() = false after Connect, want true")
	}
}
