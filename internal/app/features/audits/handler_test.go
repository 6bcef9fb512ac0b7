package audits_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/equiphub/internal/app/features/audits"
	"github.com/dalemusser/equiphub/internal/app/workflow"
	auditflow "github.com/dalemusser/equiphub/internal/app/workflow/audit"
	"github.com/dalemusser/equiphub/internal/app/workflow/reconcile"
	"github.com/dalemusser/equiphub/internal/domain/models"
	"github.com/dalemusser/equiphub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type auditHandlerFixture struct {
	handler   *audits.Handler
	equipment *testutil.MemEquipmentStore

	deptID      primitive.ObjectID
	otherDeptID primitive.ObjectID
	siteID      primitive.ObjectID
}

func newAuditHandlerFixture(t *testing.T) *auditHandlerFixture {
	t.Helper()

	equipment := testutil.NewMemEquipmentStore()
	sessions := testutil.NewMemSessionStore()
	engine := auditflow.New(equipment, sessions, workflow.NewKeyedLocks())

	return &auditHandlerFixture{
		handler:     audits.NewHandler(engine, reconcile.New(equipment), nil, zap.NewNop()),
		equipment:   equipment,
		deptID:      primitive.NewObjectID(),
		otherDeptID: primitive.NewObjectID(),
		siteID:      primitive.NewObjectID(),
	}
}

func (f *auditHandlerFixture) addItem(tag string, deptID primitive.ObjectID) models.Equipment {
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

func (f *auditHandlerFixture) startSession(t *testing.T) models.AuditSession {
	t.Helper()
	body := fmt.Sprintf(`{"department_id":%q}`, f.deptID.Hex())
	req := httptest.NewRequest("POST", "/audits", strings.NewReader(body))
	req = testutil.WithUser(req, testutil.ITUser())
	rec := httptest.NewRecorder()
	f.handler.ServeStart(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("start: got %d (body %s)", rec.Code, rec.Body.String())
	}
	var resp struct {
		Session models.AuditSession `json:"session"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse start response: %v", err)
	}
	return resp.Session
}

func (f *auditHandlerFixture) scan(t *testing.T, sessionID primitive.ObjectID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/audits/"+sessionID.Hex()+"/scan", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = testutil.WithUser(req, testutil.ITUser())
	req = testutil.WithChiURLParam(req, "id", sessionID.Hex())
	rec := httptest.NewRecorder()
	f.handler.ServeScan(rec, req)
	return rec
}

func TestServeStart_SecondStartResumes(t *testing.T) {
	f := newAuditHandlerFixture(t)
	first := f.startSession(t)

	body := fmt.Sprintf(`{"department_id":%q}`, f.deptID.Hex())
	req := httptest.NewRequest("POST", "/audits", strings.NewReader(body))
	req = testutil.WithUser(req, testutil.ITUser())
	rec := httptest.NewRecorder()
	f.handler.ServeStart(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("resume start: got %d, want %d", rec.Code, http.StatusOK)
	}
	var resp struct {
		Session models.AuditSession `json:"session"`
		Resumed bool                `json:"resumed"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if !resp.Resumed || resp.Session.ID != first.ID {
		t.Errorf("expected resumed session %s, got %+v", first.ID.Hex(), resp)
	}
}

func TestServeScan_Confirmed(t *testing.T) {
	f := newAuditHandlerFixture(t)
	f.addItem("LT-0001", f.deptID)
	s := f.startSession(t)

	rec := f.scan(t, s.ID, `{"asset_tag":"LT-0001"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d (body %s)", rec.Code, rec.Body.String())
	}
	var resp struct {
		Outcome string `json:"outcome"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Outcome != "confirmed" {
		t.Errorf("outcome: got %q, want confirmed", resp.Outcome)
	}
}

func TestServeScan_UnknownTagIs404(t *testing.T) {
	f := newAuditHandlerFixture(t)
	s := f.startSession(t)

	rec := f.scan(t, s.ID, `{"asset_tag":"NO-SUCH"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestServeScan_RelocationFlow(t *testing.T) {
	f := newAuditHandlerFixture(t)
	f.addItem("LT-0002", f.otherDeptID)
	s := f.startSession(t)

	// First scan reports a candidate.
	rec := f.scan(t, s.ID, `{"asset_tag":"LT-0002"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("candidate scan: got %d (body %s)", rec.Code, rec.Body.String())
	}
	var resp struct {
		Outcome string `json:"outcome"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Outcome != "relocation_candidate" {
		t.Fatalf("outcome: got %q, want relocation_candidate", resp.Outcome)
	}

	// Confirming moves the item.
	body := fmt.Sprintf(`{"asset_tag":"LT-0002","relocation":"confirm","site_id":%q}`, f.siteID.Hex())
	rec = f.scan(t, s.ID, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm: got %d (body %s)", rec.Code, rec.Body.String())
	}
	var confirmResp struct {
		Outcome   string           `json:"outcome"`
		Equipment models.Equipment `json:"equipment"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &confirmResp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if confirmResp.Outcome != "relocated" {
		t.Errorf("outcome: got %q, want relocated", confirmResp.Outcome)
	}
	if confirmResp.Equipment.DepartmentID == nil || *confirmResp.Equipment.DepartmentID != f.deptID {
		t.Error("confirmed relocation should move the item into the audited department")
	}
}

func TestServeScan_DeclineRecordsUnexpected(t *testing.T) {
	f := newAuditHandlerFixture(t)
	f.addItem("LT-0002", f.otherDeptID)
	s := f.startSession(t)

	body := `{"asset_tag":"LT-0002","relocation":"decline","location_note":"Warehouse B"}`
	rec := f.scan(t, s.ID, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("decline: got %d (body %s)", rec.Code, rec.Body.String())
	}
	var resp struct {
		Outcome string              `json:"outcome"`
		Session models.AuditSession `json:"session"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Outcome != "unexpected" {
		t.Errorf("outcome: got %q, want unexpected", resp.Outcome)
	}
	if len(resp.Session.UnexpectedItems) != 1 {
		t.Fatalf("unexpected items: got %d, want 1", len(resp.Session.UnexpectedItems))
	}
	u := resp.Session.UnexpectedItems[0]
	if u.OriginalDepartmentID == nil || *u.OriginalDepartmentID != f.otherDeptID {
		t.Error("recorded original department should come from the registry")
	}
	if u.LocationNote != "Warehouse B" {
		t.Errorf("location note: got %q", u.LocationNote)
	}
}

func TestServeScan_BadRelocationValue(t *testing.T) {
	f := newAuditHandlerFixture(t)
	f.addItem("LT-0002", f.otherDeptID)
	s := f.startSession(t)

	rec := f.scan(t, s.ID, `{"asset_tag":"LT-0002","relocation":"maybe"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestServeComplete_ThenReconciliation(t *testing.T) {
	f := newAuditHandlerFixture(t)
	f.addItem("LT-0001", f.deptID)
	f.addItem("LT-0002", f.deptID)
	s := f.startSession(t)

	f.scan(t, s.ID, `{"asset_tag":"LT-0001"}`)
	f.scan(t, s.ID, `{"asset_tag":"LT-0002"}`)

	req := httptest.NewRequest("POST", "/audits/"+s.ID.Hex()+"/complete", nil)
	req = testutil.WithUser(req, testutil.ITUser())
	req = testutil.WithChiURLParam(req, "id", s.ID.Hex())
	rec := httptest.NewRecorder()
	f.handler.ServeComplete(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("complete: got %d (body %s)", rec.Code, rec.Body.String())
	}

	// Registry grows after completion; the frozen report must not notice.
	f.addItem("LT-0003", f.deptID)

	req = httptest.NewRequest("GET", "/audits/"+s.ID.Hex()+"/reconciliation", nil)
	req = testutil.WithUser(req, testutil.ITUser())
	req = testutil.WithChiURLParam(req, "id", s.ID.Hex())
	rec = httptest.NewRecorder()
	f.handler.ServeReconciliation(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("reconciliation: got %d (body %s)", rec.Code, rec.Body.String())
	}

	var report reconcile.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("failed to parse report: %v", err)
	}
	if report.ExpectedCount != 2 || report.ConfirmedCount != 2 || report.MissingCount != 0 {
		t.Errorf("counts: expected=%d confirmed=%d missing=%d", report.ExpectedCount, report.ConfirmedCount, report.MissingCount)
	}
}

func TestServeCancel(t *testing.T) {
	f := newAuditHandlerFixture(t)
	s := f.startSession(t)

	req := httptest.NewRequest("POST", "/audits/"+s.ID.Hex()+"/cancel", nil)
	req = testutil.WithUser(req, testutil.ITUser())
	req = testutil.WithChiURLParam(req, "id", s.ID.Hex())
	rec := httptest.NewRecorder()
	f.handler.ServeCancel(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("cancel: got %d, want %d", rec.Code, http.StatusNoContent)
	}

	// The session is gone.
	req = httptest.NewRequest("GET", "/audits/"+s.ID.Hex(), nil)
	req = testutil.WithUser(req, testutil.ITUser())
	req = testutil.WithChiURLParam(req, "id", s.ID.Hex())
	rec = httptest.NewRecorder()
	f.handler.ServeGet(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after cancel: got %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestServeScan_PausedIs422(t *testing.T) {
	f := newAuditHandlerFixture(t)
	f.addItem("LT-0001", f.deptID)
	s := f.startSession(t)

	req := httptest.NewRequest("POST", "/audits/"+s.ID.Hex()+"/pause", nil)
	req = testutil.WithUser(req, testutil.ITUser())
	req = testutil.WithChiURLParam(req, "id", s.ID.Hex())
	rec := httptest.NewRecorder()
	f.handler.ServePause(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("pause: got %d", rec.Code)
	}

	rec = f.scan(t, s.ID, `{"asset_tag":"LT-0001"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("scan while paused: got %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
}
