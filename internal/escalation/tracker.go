package escalation

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"cybershield/internal/evidence"
	"cybershield/internal/models"
	"cybershield/internal/repository"
)

// Abuse thresholds for a sender/receiver pair. The first incident warns the
// receiver, the third blocks the sender and resets the pair.
const (
	warnThreshold  = 1
	blockThreshold = 3
)

const blockReason = "Multiple instances of abusive messages detected"

type ActionKind string

const (
	ActionWarn  ActionKind = "warn"
	ActionBlock ActionKind = "block"
)

// Action tells the dispatch hub what side-channel alert to deliver to the
// receiver after an incident was recorded.
type Action struct {
	Kind  ActionKind
	Alert models.Alert
}

// Packager materializes an evidence archive for a batch of incidents.
type Packager interface {
	Package(sender, receiver *models.User, incidents []evidence.Incident) (string, error)
}

// Notifier receives out-of-band notice when a block action fires. A nil
// notifier disables notifications.
type Notifier interface {
	NotifyBlock(sender, receiver *models.User, evidencePath string)
}

type pairKey struct {
	senderID   int64
	receiverID int64
}

// pairState is the per-pair abuse counter. It is guarded by its own mutex so
// incidents for one pair serialize without stalling unrelated pairs.
type pairState struct {
	mu          sync.Mutex
	count       int
	incidents   []evidence.Incident
	windowStart time.Time
}

// Tracker counts abusive incidents per ordered (sender, receiver) pair and
// escalates from warning to block at fixed thresholds. State is held in
// process memory only and is lost on restart.
type Tracker struct {
	mu    sync.Mutex
	pairs map[pairKey]*pairState

	packager Packager
	userRepo repository.UserRepository
	reports  repository.ReportRepository
	blocks   repository.BlockRepository
	notifier Notifier
	logger   *zap.Logger
}

func NewTracker(packager Packager, userRepo repository.UserRepository, reports repository.ReportRepository, blocks repository.BlockRepository, notifier Notifier, logger *zap.Logger) *Tracker {
	return &Tracker{
		pairs:    make(map[pairKey]*pairState),
		packager: packager,
		userRepo: userRepo,
		reports:  reports,
		blocks:   blocks,
		notifier: notifier,
		logger:   logger,
	}
}

// RecordIncident registers one abusive message from msg.SenderID to
// msg.ReceiverID and returns the action the hub should signal to the
// receiver, or nil when no alert is due. The counter transition and the
// action decision happen inside the pair's critical section; evidence
// packaging and persistence run after the lock is released so a slow archive
// write never stalls dispatch.
func (t *Tracker) RecordIncident(msg *models.Message) *Action {
	category := ""
	if msg.AbuseCategory != nil {
		category = *msg.AbuseCategory
	}
	incident := evidence.Incident{
		MessageID: msg.ID,
		Content:   msg.Content,
		Score:     msg.AbuseScore,
		Category:  category,
		Timestamp: msg.CreatedAt,
	}

	ps := t.pair(msg.SenderID, msg.ReceiverID)

	ps.mu.Lock()
	if ps.count == 0 {
		ps.windowStart = time.Now()
	}
	ps.count++
	ps.incidents = append(ps.incidents, incident)
	count := ps.count

	// Snapshot the log for packaging; the block action resets the pair
	// atomically with the decision so no stale count is ever observable.
	snapshot := make([]evidence.Incident, len(ps.incidents))
	copy(snapshot, ps.incidents)

	blocked := count >= blockThreshold
	if blocked {
		ps.count = 0
		ps.incidents = nil
		ps.windowStart = time.Time{}
	}
	ps.mu.Unlock()

	sender := t.lookupUser(msg.SenderID)
	receiver := t.lookupUser(msg.ReceiverID)

	// Evidence generation is best-effort: a failed archive degrades
	// observability, never the escalation decision. Warning-stage archives
	// cover the triggering message; the block archive covers the whole
	// accumulated window.
	batch := snapshot[len(snapshot)-1:]
	if blocked {
		batch = snapshot
	}
	evidencePath := ""
	path, err := t.packager.Package(sender, receiver, batch)
	if err != nil {
		t.logger.Error("Failed to package evidence",
			zap.Int64("sender_id", msg.SenderID),
			zap.Int64("receiver_id", msg.ReceiverID),
			zap.Error(err))
	} else {
		evidencePath = path
	}

	t.insertReport(msg, evidencePath)

	switch {
	case blocked:
		t.applyBlock(sender, receiver, evidencePath)
		return &Action{
			Kind: ActionBlock,
			Alert: models.Alert{
				Type:     "alert",
				Severity: models.AlertSeverityCritical,
				Message:  "User has been automatically blocked due to multiple abusive messages. Reports have been generated.",
			},
		}
	case count == warnThreshold:
		return &Action{
			Kind: ActionWarn,
			Alert: models.Alert{
				Type:     "alert",
				Severity: models.AlertSeverityWarning,
				Message:  "We've detected potentially abusive content in a recent message. Please be respectful in your communications.",
			},
		}
	default:
		// Second incident: logged and reported, no new alert.
		return nil
	}
}

// PairCount reports the current incident count for a pair.
func (t *Tracker) PairCount(senderID, receiverID int64) int {
	ps := t.pair(senderID, receiverID)
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.count
}

func (t *Tracker) pair(senderID, receiverID int64) *pairState {
	key := pairKey{senderID: senderID, receiverID: receiverID}
	t.mu.Lock()
	defer t.mu.Unlock()
	ps, ok := t.pairs[key]
	if !ok {
		ps = &pairState{}
		t.pairs[key] = ps
	}
	return ps
}

func (t *Tracker) lookupUser(id int64) *models.User {
	user, err := t.userRepo.GetUserByID(id)
	if err != nil {
		t.logger.Warn("Failed to look up user for evidence report", zap.Int64("user_id", id), zap.Error(err))
		return &models.User{ID: id, Username: fmt.Sprintf("user_%d", id), FullName: fmt.Sprintf("User %d", id)}
	}
	return user
}

func (t *Tracker) insertReport(msg *models.Message, evidencePath string) {
	report := &models.Report{
		ReporterID: msg.ReceiverID,
		ReportedID: msg.SenderID,
		MessageID:  &msg.ID,
		Status:     "pending",
	}
	if evidencePath != "" {
		report.EvidencePath = &evidencePath
	}
	if err := t.reports.CreateReport(report); err != nil {
		t.logger.Error("Failed to save incident report",
			zap.Int64("message_id", msg.ID),
			zap.Error(err))
	}
}

func (t *Tracker) applyBlock(sender, receiver *models.User, evidencePath string) {
	block := &models.BlockedUser{
		UserID:        receiver.ID,
		BlockedUserID: sender.ID,
		Reason:        blockReason,
	}
	if err := t.blocks.CreateBlock(block); err != nil {
		t.logger.Error("Failed to save block relationship",
			zap.Int64("blocker_id", receiver.ID),
			zap.Int64("blocked_id", sender.ID),
			zap.Error(err))
	}

	t.logger.Info("Sender blocked after repeated abuse",
		zap.Int64("sender_id", sender.ID),
		zap.Int64("receiver_id", receiver.ID))

	if t.notifier != nil {
		t.notifier.NotifyBlock(sender, receiver, evidencePath)
	}
}
