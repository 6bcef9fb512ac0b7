package audit_test

import (
	"context"
	"errors"
	"testing"

	"github.com/dalemusser/equiphub/internal/app/workflow"
	"github.com/dalemusser/equiphub/internal/app/workflow/audit"
	"github.com/dalemusser/equiphub/internal/domain/models"
	"github.com/dalemusser/equiphub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type auditFixture struct {
	engine    *audit.Engine
	equipment *testutil.MemEquipmentStore
	sessions  *testutil.MemSessionStore

	deptID      primitive.ObjectID
	otherDeptID primitive.ObjectID
	siteID      primitive.ObjectID
	auditorID   primitive.ObjectID
}

func newAuditFixture(t *testing.T) *auditFixture {
	t.Helper()

	equipment := testutil.NewMemEquipmentStore()
	sessions := testutil.NewMemSessionStore()

	return &auditFixture{
		engine:      audit.New(equipment, sessions, workflow.NewKeyedLocks()),
		equipment:   equipment,
		sessions:    sessions,
		deptID:      primitive.NewObjectID(),
		otherDeptID: primitive.NewObjectID(),
		siteID:      primitive.NewObjectID(),
		auditorID:   primitive.NewObjectID(),
	}
}

func (f *auditFixture) addItem(tag string, deptID primitive.ObjectID) models.Equipment {
	d := deptID
	s := f.siteID
	return f.equipment.Put(models.Equipment{
		AssetTag:     tag,
		Name:         "Item " + tag,
		Model:        "M-100",
		Status:       models.StatusAvailable,
		SiteID:       &s,
		DepartmentID: &d,
	})
}

func (f *auditFixture) start(t *testing.T) models.AuditSession {
	t.Helper()
	s, resumed, err := f.engine.Start(context.Background(), f.deptID, f.auditorID)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if resumed {
		t.Fatal("first start should not resume")
	}
	return s
}

func TestStart_CreatesInProgressSession(t *testing.T) {
	f := newAuditFixture(t)

	s := f.start(t)

	if s.Status != models.AuditInProgress {
		t.Errorf("status: got %s, want in_progress", s.Status)
	}
	if s.DepartmentID != f.deptID {
		t.Error("session should reference the audited department")
	}
	if len(s.ScannedItemIDs) != 0 || len(s.UnexpectedItems) != 0 {
		t.Error("new session should start empty")
	}
}

func TestStart_ResumesExistingSession(t *testing.T) {
	f := newAuditFixture(t)
	first := f.start(t)

	second, resumed, err := f.engine.Start(context.Background(), f.deptID, primitive.NewObjectID())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !resumed {
		t.Fatal("second start should resume the active session")
	}
	if second.ID != first.ID {
		t.Error("resume should reuse the same session record")
	}
	if n := f.sessions.Len(); n != 1 {
		t.Errorf("session count: got %d, want 1", n)
	}
}

func TestStart_ResumesPausedSession(t *testing.T) {
	f := newAuditFixture(t)
	s := f.start(t)

	if _, err := f.engine.Pause(context.Background(), s.ID); err != nil {
		t.Fatalf("Pause failed: %v", err)
	}

	resumedSession, resumed, err := f.engine.Start(context.Background(), f.deptID, f.auditorID)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !resumed {
		t.Fatal("start should resume the paused session")
	}
	if resumedSession.Status != models.AuditInProgress {
		t.Errorf("status: got %s, want in_progress", resumedSession.Status)
	}
}

func TestStart_NewSessionAfterCompletion(t *testing.T) {
	f := newAuditFixture(t)
	s := f.start(t)

	if _, err := f.engine.Complete(context.Background(), s.ID); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	next, resumed, err := f.engine.Start(context.Background(), f.deptID, f.auditorID)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if resumed {
		t.Fatal("completed sessions must not be resumed")
	}
	if next.ID == s.ID {
		t.Error("a fresh session should have been created")
	}
}

func TestScan_ConfirmsDepartmentItem(t *testing.T) {
	f := newAuditFixture(t)
	item := f.addItem("LT-0001", f.deptID)
	s := f.start(t)

	res, err := f.engine.Scan(context.Background(), s.ID, "LT-0001")
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if res.Outcome != audit.ScanConfirmed {
		t.Errorf("outcome: got %s, want confirmed", res.Outcome)
	}
	if len(res.Session.ScannedItemIDs) != 1 || res.Session.ScannedItemIDs[0] != item.ID {
		t.Error("item should be in the confirmed set")
	}
}

func TestScan_RepeatScanIsBenign(t *testing.T) {
	f := newAuditFixture(t)
	f.addItem("LT-0001", f.deptID)
	s := f.start(t)

	if _, err := f.engine.Scan(context.Background(), s.ID, "LT-0001"); err != nil {
		t.Fatalf("first scan failed: %v", err)
	}
	res, err := f.engine.Scan(context.Background(), s.ID, "LT-0001")
	if err != nil {
		t.Fatalf("repeat scan failed: %v", err)
	}
	if res.Outcome != audit.ScanAlreadyConfirmed {
		t.Errorf("outcome: got %s, want already_confirmed", res.Outcome)
	}
	if len(res.Session.ScannedItemIDs) != 1 {
		t.Errorf("confirmed set size: got %d, want 1", len(res.Session.ScannedItemIDs))
	}
}

func TestScan_UnknownTagIsNotFound(t *testing.T) {
	f := newAuditFixture(t)
	s := f.start(t)

	_, err := f.engine.Scan(context.Background(), s.ID, "NO-SUCH-TAG")
	if !errors.Is(err, workflow.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestScan_ForeignItemIsRelocationCandidate(t *testing.T) {
	f := newAuditFixture(t)
	item := f.addItem("LT-0002", f.otherDeptID)
	s := f.start(t)

	res, err := f.engine.Scan(context.Background(), s.ID, "LT-0002")
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if res.Outcome != audit.ScanRelocationCandidate {
		t.Errorf("outcome: got %s, want relocation_candidate", res.Outcome)
	}
	// Nothing recorded yet: not confirmed, not unexpected, item untouched.
	if len(res.Session.ScannedItemIDs) != 0 || len(res.Session.UnexpectedItems) != 0 {
		t.Error("a candidate scan must not record anything")
	}
	got, _ := f.equipment.GetByID(context.Background(), item.ID)
	if *got.DepartmentID != f.otherDeptID {
		t.Error("a candidate scan must not move the item")
	}
}

func TestConfirmRelocation_MovesItemAndConfirms(t *testing.T) {
	f := newAuditFixture(t)
	item := f.addItem("LT-0002", f.otherDeptID)
	s := f.start(t)

	newSite := primitive.NewObjectID()
	res, err := f.engine.ConfirmRelocation(context.Background(), s.ID, "LT-0002", newSite)
	if err != nil {
		t.Fatalf("ConfirmRelocation failed: %v", err)
	}
	if res.Outcome != audit.ScanRelocated {
		t.Errorf("outcome: got %s, want relocated", res.Outcome)
	}
	if *res.Equipment.DepartmentID != f.deptID {
		t.Error("item should now belong to the audited department")
	}
	if *res.Equipment.SiteID != newSite {
		t.Error("item site should follow the audited location")
	}
	if len(res.Session.ScannedItemIDs) != 1 || res.Session.ScannedItemIDs[0] != item.ID {
		t.Error("relocated item should be in the confirmed set")
	}
}

func TestConfirmRelocation_LocalItemFails(t *testing.T) {
	f := newAuditFixture(t)
	f.addItem("LT-0001", f.deptID)
	s := f.start(t)

	_, err := f.engine.ConfirmRelocation(context.Background(), s.ID, "LT-0001", f.siteID)
	if !errors.Is(err, workflow.ErrPreconditionFailed) {
		t.Fatalf("expected ErrPreconditionFailed, got %v", err)
	}
}

func TestDeclineRelocation_RecordsUnexpectedItem(t *testing.T) {
	f := newAuditFixture(t)
	item := f.addItem("LT-0002", f.otherDeptID)
	s := f.start(t)

	res, err := f.engine.DeclineRelocation(context.Background(), s.ID, "LT-0002", "Warehouse B / Shipping")
	if err != nil {
		t.Fatalf("DeclineRelocation failed: %v", err)
	}
	if res.Outcome != audit.ScanUnexpected {
		t.Errorf("outcome: got %s, want unexpected", res.Outcome)
	}
	if len(res.Session.UnexpectedItems) != 1 {
		t.Fatalf("unexpected items: got %d, want 1", len(res.Session.UnexpectedItems))
	}
	u := res.Session.UnexpectedItems[0]
	if u.AssetTag != "LT-0002" || u.ModelName != "M-100" || u.LocationNote != "Warehouse B / Shipping" {
		t.Errorf("recorded unexpected item is wrong: %+v", u)
	}
	if u.EquipmentID != item.ID {
		t.Error("unexpected item should reference the equipment record")
	}
	// The registered location is captured from the registry, not the caller.
	if u.OriginalDepartmentID == nil || *u.OriginalDepartmentID != f.otherDeptID {
		t.Errorf("original department: got %v, want %s", u.OriginalDepartmentID, f.otherDeptID.Hex())
	}
	if u.OriginalSiteID == nil || *u.OriginalSiteID != f.siteID {
		t.Errorf("original site: got %v, want %s", u.OriginalSiteID, f.siteID.Hex())
	}
	if len(res.Session.ScannedItemIDs) != 0 {
		t.Error("declined items must not join the confirmed set")
	}
	got, _ := f.equipment.GetByID(context.Background(), item.ID)
	if *got.DepartmentID != f.otherDeptID {
		t.Error("declined items keep their registered location")
	}
}

func TestDeclineRelocation_IsIdempotentPerTag(t *testing.T) {
	f := newAuditFixture(t)
	f.addItem("LT-0002", f.otherDeptID)
	s := f.start(t)

	if _, err := f.engine.DeclineRelocation(context.Background(), s.ID, "LT-0002", "Warehouse B"); err != nil {
		t.Fatalf("first decline failed: %v", err)
	}
	res, err := f.engine.DeclineRelocation(context.Background(), s.ID, "LT-0002", "Warehouse B")
	if err != nil {
		t.Fatalf("second decline failed: %v", err)
	}
	if len(res.Session.UnexpectedItems) != 1 {
		t.Errorf("unexpected items: got %d, want 1", len(res.Session.UnexpectedItems))
	}
}

func TestScan_PausedSessionRejectsScans(t *testing.T) {
	f := newAuditFixture(t)
	f.addItem("LT-0001", f.deptID)
	s := f.start(t)

	if _, err := f.engine.Pause(context.Background(), s.ID); err != nil {
		t.Fatalf("Pause failed: %v", err)
	}
	_, err := f.engine.Scan(context.Background(), s.ID, "LT-0001")
	if !errors.Is(err, workflow.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestPauseResume_RoundTrip(t *testing.T) {
	f := newAuditFixture(t)
	f.addItem("LT-0001", f.deptID)
	s := f.start(t)

	if _, err := f.engine.Pause(context.Background(), s.ID); err != nil {
		t.Fatalf("Pause failed: %v", err)
	}
	resumed, err := f.engine.Resume(context.Background(), s.ID)
	if err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if resumed.Status != models.AuditInProgress {
		t.Errorf("status: got %s, want in_progress", resumed.Status)
	}

	if _, err := f.engine.Scan(context.Background(), s.ID, "LT-0001"); err != nil {
		t.Errorf("scan after resume failed: %v", err)
	}
}

func TestPause_AlreadyPausedFails(t *testing.T) {
	f := newAuditFixture(t)
	s := f.start(t)

	if _, err := f.engine.Pause(context.Background(), s.ID); err != nil {
		t.Fatalf("Pause failed: %v", err)
	}
	_, err := f.engine.Pause(context.Background(), s.ID)
	if !errors.Is(err, workflow.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestComplete_SnapshotsExpectedInventory(t *testing.T) {
	f := newAuditFixture(t)
	a := f.addItem("LT-0001", f.deptID)
	b := f.addItem("LT-0002", f.deptID)
	c := f.addItem("LT-0003", f.deptID)
	s := f.start(t)

	for _, tag := range []string{"LT-0001", "LT-0002", "LT-0003"} {
		if _, err := f.engine.Scan(context.Background(), s.ID, tag); err != nil {
			t.Fatalf("scan %s failed: %v", tag, err)
		}
	}

	done, err := f.engine.Complete(context.Background(), s.ID)
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if done.Status != models.AuditCompleted {
		t.Errorf("status: got %s, want completed", done.Status)
	}
	if done.CompletedAt == nil {
		t.Error("completed session should carry a completion timestamp")
	}
	if len(done.ExpectedItemIDs) != 3 {
		t.Fatalf("snapshot size: got %d, want 3", len(done.ExpectedItemIDs))
	}
	want := map[primitive.ObjectID]bool{a.ID: true, b.ID: true, c.ID: true}
	for _, id := range done.ExpectedItemIDs {
		if !want[id] {
			t.Errorf("unexpected id %s in snapshot", id.Hex())
		}
	}
}

func TestComplete_AlreadyCompletedFails(t *testing.T) {
	f := newAuditFixture(t)
	s := f.start(t)

	if _, err := f.engine.Complete(context.Background(), s.ID); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	_, err := f.engine.Complete(context.Background(), s.ID)
	if !errors.Is(err, workflow.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestCancel_DeletesSession(t *testing.T) {
	f := newAuditFixture(t)
	s := f.start(t)

	if err := f.engine.Cancel(context.Background(), s.ID); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if n := f.sessions.Len(); n != 0 {
		t.Errorf("session count after cancel: got %d, want 0", n)
	}
	_, err := f.engine.Get(context.Background(), s.ID)
	if !errors.Is(err, workflow.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after cancel, got %v", err)
	}
}

func TestCancel_CompletedSessionFails(t *testing.T) {
	f := newAuditFixture(t)
	s := f.start(t)

	if _, err := f.engine.Complete(context.Background(), s.ID); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	err := f.engine.Cancel(context.Background(), s.ID)
	if !errors.Is(err, workflow.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}
