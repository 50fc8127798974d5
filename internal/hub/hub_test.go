package hub

import (
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"

	"cybershield/internal/abuse"
	"cybershield/internal/escalation"
	"cybershield/internal/models"
)

type fakeConn struct {
	mu       sync.Mutex
	payloads []interface{}
	closed   bool
	sendErr  error
}

func (f *fakeConn) Send(v interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.payloads = append(f.payloads, v)
	return nil
}

func (f *fakeConn) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeConn) received() []interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]interface{}, len(f.payloads))
	copy(out, f.payloads)
	return out
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type fakeTracker struct {
	incidents []*models.Message
	action    *escalation.Action
}

func (f *fakeTracker) RecordIncident(msg *models.Message) *escalation.Action {
	f.incidents = append(f.incidents, msg)
	return f.action
}

type fakeMessageRepo struct {
	saved []*models.Message
	err   error
}

func (f *fakeMessageRepo) SaveMessage(msg *models.Message) error {
	if f.err != nil {
		return f.err
	}
	msg.ID = int64(len(f.saved) + 1)
	f.saved = append(f.saved, msg)
	return nil
}
func (f *fakeMessageRepo) GetMessageByID(id int64) (*models.Message, error) { return nil, nil }
func (f *fakeMessageRepo) GetConversation(userID, otherID int64) ([]*models.Message, error) {
	return nil, nil
}
func (f *fakeMessageRepo) CountMessages() (int, error) { return 0, nil }
func (f *fakeMessageRepo) CountAbusiveMessages() (int, error) { return 0, nil }
func (f *fakeMessageRepo) AbuseCategoryCounts() (map[string]int, error) { return nil, nil }

type fakeBlockRepo struct {
	blocked map[[2]int64]bool
	err     error
}

func (f *fakeBlockRepo) CreateBlock(block *models.BlockedUser) error { return nil }
func (f *fakeBlockRepo) IsBlocked(userID, blockedUserID int64) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.blocked[[2]int64{userID, blockedUserID}], nil
}
func (f *fakeBlockRepo) ListBlocks(userID int64) ([]*models.BlockedUser, error) { return nil, nil }
func (f *fakeBlockRepo) DeleteBlock(userID, blockedUserID int64) error { return nil }

func newTestHub(tracker Tracker, messages *fakeMessageRepo, blocks *fakeBlockRepo) *Hub {
	if messages == nil {
		messages = &fakeMessageRepo{}
	}
	if blocks == nil {
		blocks = &fakeBlockRepo{}
	}
	return NewHub(abuse.NewDetector(), tracker, messages, blocks, zap.NewNop())
}

func TestRegisterAndDeliver(t *testing.T) {
	h := newTestHub(&fakeTracker{}, nil, nil)
	conn := &fakeConn{}

	h.Register(20, conn)
	if !h.Connected(20) {
		t.Fatal("Connected(20) = false after Register")
	}

	h.Deliver(20, "hello")
	if got := conn.received(); len(got) != 1 || got[0] != "hello" {
		t.Errorf("received = %v, want [hello]", got)
	}

	// Delivery to a participant without a connection is a silent no-op.
	h.Deliver(99, "nobody home")

	h.Unregister(20)
	if h.Connected(20) {
		t.Fatal("Connected(20) = true after Unregister")
	}
	h.Deliver(20, "gone")
	if got := conn.received(); len(got) != 1 {
		t.Errorf("received %d payloads after Unregister, want 1", len(got))
	}
}

func TestRegisterReplacesConnection(t *testing.T) {
	h := newTestHub(&fakeTracker{}, nil, nil)
	first := &fakeConn{}
	second := &fakeConn{}

	h.Register(20, first)
	h.Register(20, second)

	if !first.isClosed() {
		t.Error("replaced connection was not closed")
	}
	h.Deliver(20, "payload")
	if len(first.received()) != 0 {
		t.Error("replaced connection still receives payloads")
	}
	if len(second.received()) != 1 {
		t.Error("current connection did not receive payload")
	}

	// The replaced connection tearing down must not evict its successor.
	h.dropIfCurrent(20, first)
	if !h.Connected(20) {
		t.Error("dropIfCurrent with stale connection evicted the live one")
	}
	h.dropIfCurrent(20, second)
	if h.Connected(20) {
		t.Error("dropIfCurrent with live connection did not evict it")
	}
}

func TestDeliverSendFailureDropsConnection(t *testing.T) {
	h := newTestHub(&fakeTracker{}, nil, nil)
	conn := &fakeConn{sendErr: errors.New("buffer full")}

	h.Register(20, conn)
	h.Deliver(20, "payload")

	if h.Connected(20) {
		t.Error("connection still registered after send failure")
	}
	if !conn.isClosed() {
		t.Error("connection not closed after send failure")
	}
}

func TestDeliverConcurrentWithTeardown(t *testing.T) {
	h := newTestHub(&fakeTracker{}, nil, nil)

	// Deliveries race connection replacement, explicit Close (the read pump
	// teardown path) and Unregister. None of these may panic; a dead
	// connection is simply dropped.
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				h.Deliver(20, "payload")
			}
		}()
	}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				c := NewClient(h, nil, 20, zap.NewNop())
				h.Register(20, c)
				c.Close()
				h.dropIfCurrent(20, c)
				h.Unregister(20)
			}
		}()
	}
	wg.Wait()

	h.Deliver(20, "payload")
}

func TestHandleInboundCleanMessage(t *testing.T) {
	tracker := &fakeTracker{}
	messages := &fakeMessageRepo{}
	h := newTestHub(tracker, messages, nil)
	receiver := &fakeConn{}
	h.Register(20, receiver)

	err := h.HandleInbound(10, models.InboundMessage{ReceiverID: 20, Content: "see you at lunch"})
	if err != nil {
		t.Fatalf("HandleInbound failed: %v", err)
	}

	if len(messages.saved) != 1 {
		t.Fatalf("messages persisted = %d, want 1", len(messages.saved))
	}
	saved := messages.saved[0]
	if saved.IsAbusive || saved.AbuseScore != 0 || saved.AbuseCategory != nil {
		t.Errorf("clean message stored with abuse marks: %+v", saved)
	}

	if len(tracker.incidents) != 0 {
		t.Errorf("tracker called %d times for clean message, want 0", len(tracker.incidents))
	}

	got := receiver.received()
	if len(got) != 1 {
		t.Fatalf("receiver got %d payloads, want 1", len(got))
	}
	if msg, ok := got[0].(*models.Message); !ok || msg.Content != "see you at lunch" {
		t.Errorf("forwarded payload = %#v, want the message", got[0])
	}
}

func TestHandleInboundAbusiveMessage(t *testing.T) {
	tracker := &fakeTracker{
		action: &escalation.Action{
			Kind: escalation.ActionWarn,
			Alert: models.Alert{
				Type:     "alert",
				Severity: models.AlertSeverityWarning,
				Message:  "warning",
			},
		},
	}
	messages := &fakeMessageRepo{}
	h := newTestHub(tracker, messages, nil)
	receiver := &fakeConn{}
	h.Register(20, receiver)

	if err := h.HandleInbound(10, models.InboundMessage{ReceiverID: 20, Content: "I will kill you"}); err != nil {
		t.Fatalf("HandleInbound failed: %v", err)
	}

	if len(tracker.incidents) != 1 {
		t.Fatalf("tracker called %d times, want 1", len(tracker.incidents))
	}
	incident := tracker.incidents[0]
	if !incident.IsAbusive || incident.AbuseScore < 4.0 || incident.AbuseCategory == nil {
		t.Errorf("incident message not marked abusive: %+v", incident)
	}

	// The message itself is still forwarded, followed by the alert.
	got := receiver.received()
	if len(got) != 2 {
		t.Fatalf("receiver got %d payloads, want message then alert", len(got))
	}
	if _, ok := got[0].(*models.Message); !ok {
		t.Errorf("first payload = %#v, want the message", got[0])
	}
	alert, ok := got[1].(models.Alert)
	if !ok || alert.Severity != models.AlertSeverityWarning {
		t.Errorf("second payload = %#v, want the warning alert", got[1])
	}
}

func TestHandleInboundAbusiveNoAction(t *testing.T) {
	tracker := &fakeTracker{} // second incident in a window yields no action
	h := newTestHub(tracker, nil, nil)
	receiver := &fakeConn{}
	h.Register(20, receiver)

	if err := h.HandleInbound(10, models.InboundMessage{ReceiverID: 20, Content: "you are so stupid"}); err != nil {
		t.Fatalf("HandleInbound failed: %v", err)
	}
	if got := receiver.received(); len(got) != 1 {
		t.Errorf("receiver got %d payloads, want the message only", len(got))
	}
}

func TestHandleInboundPersistFailure(t *testing.T) {
	tracker := &fakeTracker{}
	messages := &fakeMessageRepo{err: errors.New("db down")}
	h := newTestHub(tracker, messages, nil)
	receiver := &fakeConn{}
	h.Register(20, receiver)

	err := h.HandleInbound(10, models.InboundMessage{ReceiverID: 20, Content: "see you at lunch"})
	if err == nil {
		t.Fatal("HandleInbound did not report persistence failure")
	}

	// The live forward still happens.
	if got := receiver.received(); len(got) != 1 {
		t.Errorf("receiver got %d payloads despite storage outage, want 1", len(got))
	}
}

func TestHandleInboundBlockedSender(t *testing.T) {
	tracker := &fakeTracker{}
	messages := &fakeMessageRepo{}
	blocks := &fakeBlockRepo{blocked: map[[2]int64]bool{{20, 10}: true}}
	h := newTestHub(tracker, messages, blocks)
	sender := &fakeConn{}
	receiver := &fakeConn{}
	h.Register(10, sender)
	h.Register(20, receiver)

	if err := h.HandleInbound(10, models.InboundMessage{ReceiverID: 20, Content: "hi"}); err != nil {
		t.Fatalf("HandleInbound failed: %v", err)
	}

	if len(receiver.received()) != 0 {
		t.Error("receiver got a payload from a blocked sender")
	}
	if len(messages.saved) != 0 {
		t.Error("message from blocked sender was persisted")
	}
	got := sender.received()
	if len(got) != 1 {
		t.Fatalf("sender got %d payloads, want the rejection alert", len(got))
	}
	if alert, ok := got[0].(models.Alert); !ok || alert.Severity != models.AlertSeverityWarning {
		t.Errorf("sender payload = %#v, want warning alert", got[0])
	}
}

func TestHandleInboundBlockCheckFailureProceeds(t *testing.T) {
	tracker := &fakeTracker{}
	messages := &fakeMessageRepo{}
	blocks := &fakeBlockRepo{err: errors.New("db down")}
	h := newTestHub(tracker, messages, blocks)
	receiver := &fakeConn{}
	h.Register(20, receiver)

	if err := h.HandleInbound(10, models.InboundMessage{ReceiverID: 20, Content: "hi"}); err != nil {
		t.Fatalf("HandleInbound failed: %v", err)
	}
	if len(receiver.received()) != 1 {
		t.Error("message not forwarded when block check failed")
	}
	if len(messages.saved) != 1 {
		t.Error("message not persisted when block check failed")
	}
}
