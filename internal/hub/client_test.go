package hub

import (
	"sync"
	"testing"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

func TestClientSendAfterClose(t *testing.T) {
	c := NewClient(nil, nil, 7, zap.NewNop())

	c.Close()
	if err := c.Send("payload"); err != websocket.ErrCloseSent {
		t.Errorf("Send after Close: err = %v, want %v", err, websocket.ErrCloseSent)
	}

	// Repeated Close must be a no-op.
	c.Close()
}

func TestClientSendFullQueue(t *testing.T) {
	c := NewClient(nil, nil, 7, zap.NewNop())

	for i := 0; i < sendBuffer; i++ {
		if err := c.Send("payload"); err != nil {
			t.Fatalf("Send %d failed: %v", i, err)
		}
	}
	if err := c.Send("overflow"); err != websocket.ErrCloseSent {
		t.Errorf("Send on full queue: err = %v, want %v", err, websocket.ErrCloseSent)
	}
}

func TestClientSendCloseConcurrent(t *testing.T) {
	c := NewClient(nil, nil, 7, zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Send("payload")
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.Close()
	}()
	wg.Wait()

	if err := c.Send("payload"); err != websocket.ErrCloseSent {
		t.Errorf("Send after concurrent Close: err = %v, want %v", err, websocket.ErrCloseSent)
	}
}
