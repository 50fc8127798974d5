package escalation

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"cybershield/internal/evidence"
	"cybershield/internal/models"
)

type fakePackager struct {
	mu    sync.Mutex
	calls [][]evidence.Incident
	path  string
	err   error
}

func (f *fakePackager) Package(sender, receiver *models.User, incidents []evidence.Incident) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	batch := make([]evidence.Incident, len(incidents))
	copy(batch, incidents)
	f.calls = append(f.calls, batch)
	return f.path, f.err
}

type fakeUserRepo struct{}

func (f *fakeUserRepo) CreateUser(user *models.User) error { return nil }
func (f *fakeUserRepo) GetUserByID(id int64) (*models.User, error) {
	return &models.User{ID: id, Username: "u", FullName: "U"}, nil
}
func (f *fakeUserRepo) GetUserByUsername(username string) (*models.User, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeUserRepo) ListUsers(excludeID int64) ([]*models.User, error) { return nil, nil }
func (f *fakeUserRepo) CountUsers() (int, error) { return 0, nil }

type fakeReportRepo struct {
	mu      sync.Mutex
	reports []*models.Report
	err     error
}

func (f *fakeReportRepo) CreateReport(report *models.Report) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.reports = append(f.reports, report)
	return nil
}
func (f *fakeReportRepo) GetReportByID(id int64) (*models.Report, error) { return nil, nil }
func (f *fakeReportRepo) GetReportsForUser(userID int64) ([]*models.Report, error) { return nil, nil }
func (f *fakeReportRepo) GetReportsByStatus(status string) ([]*models.Report, error) { return nil, nil }
func (f *fakeReportRepo) GetAllReports() ([]*models.Report, error) { return nil, nil }
func (f *fakeReportRepo) UpdateReportStatus(id int64, status string) error { return nil }
func (f *fakeReportRepo) CountReportsByStatus() (map[string]int, error) { return nil, nil }

type fakeBlockRepo struct {
	mu     sync.Mutex
	blocks []*models.BlockedUser
}

func (f *fakeBlockRepo) CreateBlock(block *models.BlockedUser) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blocks = append(f.blocks, block)
	return nil
}
func (f *fakeBlockRepo) IsBlocked(userID, blockedUserID int64) (bool, error) { return false, nil }
func (f *fakeBlockRepo) ListBlocks(userID int64) ([]*models.BlockedUser, error) { return nil, nil }
func (f *fakeBlockRepo) DeleteBlock(userID, blockedUserID int64) error { return nil }

type fakeNotifier struct {
	calls int32
}

func (f *fakeNotifier) NotifyBlock(sender, receiver *models.User, evidencePath string) {
	atomic.AddInt32(&f.calls, 1)
}

func abusiveMessage(id, senderID, receiverID int64) *models.Message {
	category := "CYBERBULLYING"
	return &models.Message{
		ID:            id,
		SenderID:      senderID,
		ReceiverID:    receiverID,
		Content:       "you are so stupid",
		IsAbusive:     true,
		AbuseScore:    7.0,
		AbuseCategory: &category,
		CreatedAt:     time.Now(),
	}
}

func newTestTracker(packager *fakePackager, reports *fakeReportRepo, blocks *fakeBlockRepo, notifier *fakeNotifier) *Tracker {
	var n Notifier
	if notifier != nil {
		n = notifier
	}
	return NewTracker(packager, &fakeUserRepo{}, reports, blocks, n, zap.NewNop())
}

func TestEscalationSequence(t *testing.T) {
	packager := &fakePackager{path: "reports/archive.zip"}
	reports := &fakeReportRepo{}
	blocks := &fakeBlockRepo{}
	notifier := &fakeNotifier{}
	tr := newTestTracker(packager, reports, blocks, notifier)

	first := tr.RecordIncident(abusiveMessage(1, 10, 20))
	if first == nil || first.Kind != ActionWarn {
		t.Fatalf("first incident: action = %+v, want warn", first)
	}
	if first.Alert.Severity != models.AlertSeverityWarning {
		t.Errorf("warn alert severity = %q", first.Alert.Severity)
	}

	second := tr.RecordIncident(abusiveMessage(2, 10, 20))
	if second != nil {
		t.Fatalf("second incident: action = %+v, want nil", second)
	}

	third := tr.RecordIncident(abusiveMessage(3, 10, 20))
	if third == nil || third.Kind != ActionBlock {
		t.Fatalf("third incident: action = %+v, want block", third)
	}
	if third.Alert.Severity != models.AlertSeverityCritical {
		t.Errorf("block alert severity = %q", third.Alert.Severity)
	}

	if got := tr.PairCount(10, 20); got != 0 {
		t.Errorf("pair count after block = %d, want 0", got)
	}
	if len(reports.reports) != 3 {
		t.Errorf("reports created = %d, want 3", len(reports.reports))
	}
	if len(blocks.blocks) != 1 {
		t.Fatalf("blocks created = %d, want 1", len(blocks.blocks))
	}
	if b := blocks.blocks[0]; b.UserID != 20 || b.BlockedUserID != 10 {
		t.Errorf("block = {user %d blocks %d}, want {user 20 blocks 10}", b.UserID, b.BlockedUserID)
	}
	if notifier.calls != 1 {
		t.Errorf("notifier calls = %d, want 1", notifier.calls)
	}
}

func TestEvidenceBatches(t *testing.T) {
	packager := &fakePackager{path: "reports/archive.zip"}
	tr := newTestTracker(packager, &fakeReportRepo{}, &fakeBlockRepo{}, nil)

	tr.RecordIncident(abusiveMessage(1, 10, 20))
	tr.RecordIncident(abusiveMessage(2, 10, 20))
	tr.RecordIncident(abusiveMessage(3, 10, 20))

	if len(packager.calls) != 3 {
		t.Fatalf("packager calls = %d, want 3", len(packager.calls))
	}
	// Warning-stage archives cover the triggering message only; the block
	// archive covers the whole window.
	if len(packager.calls[0]) != 1 || len(packager.calls[1]) != 1 {
		t.Errorf("warn batches = %d, %d incidents, want 1, 1", len(packager.calls[0]), len(packager.calls[1]))
	}
	if len(packager.calls[2]) != 3 {
		t.Errorf("block batch = %d incidents, want 3", len(packager.calls[2]))
	}
	if packager.calls[2][0].MessageID != 1 || packager.calls[2][2].MessageID != 3 {
		t.Errorf("block batch order = %v, want messages 1..3 in order", packager.calls[2])
	}
}

func TestPairsAreDirectional(t *testing.T) {
	tr := newTestTracker(&fakePackager{}, &fakeReportRepo{}, &fakeBlockRepo{}, nil)

	tr.RecordIncident(abusiveMessage(1, 10, 20))
	tr.RecordIncident(abusiveMessage(2, 20, 10))

	if got := tr.PairCount(10, 20); got != 1 {
		t.Errorf("PairCount(10, 20) = %d, want 1", got)
	}
	if got := tr.PairCount(20, 10); got != 1 {
		t.Errorf("PairCount(20, 10) = %d, want 1", got)
	}
}

func TestPackagingFailureDoesNotAffectEscalation(t *testing.T) {
	packager := &fakePackager{err: errors.New("disk full")}
	reports := &fakeReportRepo{}
	blocks := &fakeBlockRepo{}
	tr := newTestTracker(packager, reports, blocks, nil)

	if got := tr.RecordIncident(abusiveMessage(1, 10, 20)); got == nil || got.Kind != ActionWarn {
		t.Fatalf("first incident with failing packager: action = %+v, want warn", got)
	}
	tr.RecordIncident(abusiveMessage(2, 10, 20))
	if got := tr.RecordIncident(abusiveMessage(3, 10, 20)); got == nil || got.Kind != ActionBlock {
		t.Fatalf("third incident with failing packager: action = %+v, want block", got)
	}

	if len(blocks.blocks) != 1 {
		t.Errorf("blocks created = %d, want 1", len(blocks.blocks))
	}
	// Reports are still filed, just without an evidence path.
	if len(reports.reports) != 3 {
		t.Fatalf("reports created = %d, want 3", len(reports.reports))
	}
	for i, r := range reports.reports {
		if r.EvidencePath != nil {
			t.Errorf("report %d has evidence path %q, want none", i, *r.EvidencePath)
		}
	}
}

func TestConcurrentIncidentsBlockOnce(t *testing.T) {
	packager := &fakePackager{path: "reports/archive.zip"}
	blocks := &fakeBlockRepo{}
	tr := newTestTracker(packager, &fakeReportRepo{}, blocks, nil)

	const incidents = 5

	var wg sync.WaitGroup
	var warns, blockActions int32
	for i := 0; i < incidents; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			action := tr.RecordIncident(abusiveMessage(id, 10, 20))
			if action == nil {
				return
			}
			switch action.Kind {
			case ActionWarn:
				atomic.AddInt32(&warns, 1)
			case ActionBlock:
				atomic.AddInt32(&blockActions, 1)
			}
		}(int64(i + 1))
	}
	wg.Wait()

	if blockActions != 1 {
		t.Errorf("block actions = %d, want exactly 1", blockActions)
	}
	// The counter restarts after the block, so the fourth incident opens a
	// fresh window and warns again.
	if warns != 2 {
		t.Errorf("warn actions = %d, want 2", warns)
	}
	if len(blocks.blocks) != 1 {
		t.Errorf("blocks persisted = %d, want 1", len(blocks.blocks))
	}
	if got := tr.PairCount(10, 20); got != incidents-blockThreshold {
		t.Errorf("pair count after %d incidents = %d, want %d", incidents, got, incidents-blockThreshold)
	}
}
