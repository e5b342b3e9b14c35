package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/medscan/constants"
	"github.com/joseph-ayodele/medscan/internal/common"
	"github.com/joseph-ayodele/medscan/internal/extract"
)

const (
	datedReport   = "QUEST DIAGNOSTICS\nCollected: 2024-03-01\nA1c: 7.2 %\nLDL 130 mg/dL\n"
	undatedReport = "Creatinine 1.1\nHDL 55 mg/dL"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRepo(t *testing.T) ProposalRepository {
	t.Helper()
	db, err := Open(context.Background(), Config{DSN: ":memory:"}, quietLogger())
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return NewProposalRepository(db, quietLogger())
}

func labResult(text string) extract.Result {
	lab := extract.NewEngine().ExtractLab(text)
	return extract.Result{Kind: constants.KindLab, Lab: &lab}
}

func medicationResult() extract.Result {
	name, strength, directions := "LISINOPRIL TABLET", "10 mg", "TAKE 1 TABLET BY MOUTH DAILY"
	qty := 30
	return extract.Result{Kind: constants.KindMedication, Medication: &extract.MedicationLabelResult{
		DocumentID:  "6f1c1f0e-3b7a-5d2e-9a1e-2f3c4d5e6f70",
		Kind:        constants.KindMedication,
		DisplayName: &name,
		Strength:    &strength,
		Directions:  &directions,
		Quantity:    &qty,
		RawOCRText:  "LISINOPRIL TABLET 10 mg",
		Confidence:  constants.TierHigh,
	}}
}

func actions(events []AuditEvent) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.Action
	}
	return out
}

func TestOpen_FileDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "medscan.db")
	db, err := Open(context.Background(), Config{DSN: path}, quietLogger())
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, DialectSQLite, db.Dialect)
	assert.NoError(t, db.HealthCheck(context.Background(), 0))
	assert.FileExists(t, path)
}

func TestOpen_EmptyDSN(t *testing.T) {
	_, err := Open(context.Background(), Config{}, quietLogger())
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrInvalidInput))
}

func TestRebind(t *testing.T) {
	pg := &DB{Dialect: DialectPostgres}
	lite := &DB{Dialect: DialectSQLite}
	q := "UPDATE t SET a = ?, b = ? WHERE id = ?"
	assert.Equal(t, "UPDATE t SET a = $1, b = $2 WHERE id = $3", pg.rebind(q))
	assert.Equal(t, q, lite.rebind(q))
}

func TestSaveProposal_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	res := labResult(datedReport)

	p, err := repo.SaveProposal(ctx, "/scans/quest.pdf", res)
	require.NoError(t, err)
	assert.Equal(t, res.DocumentID(), p.ID)
	assert.Equal(t, constants.ReviewPending, p.Status)
	assert.Equal(t, constants.KindLab, p.Kind)
	assert.Equal(t, "/scans/quest.pdf", p.SourcePath)
	require.NotNil(t, p.DetectedDate)
	assert.Equal(t, "2024-03-01", *p.DetectedDate)
	require.NotNil(t, p.Lab)
	assert.Equal(t, *res.Lab, *p.Lab)
	assert.Nil(t, p.DecidedAt)

	pending, err := repo.ListPending(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, p.ID, pending[0].ID)
}

func TestSaveProposal_Idempotent(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	res := labResult(datedReport)

	first, err := repo.SaveProposal(ctx, "a.pdf", res)
	require.NoError(t, err)
	second, err := repo.SaveProposal(ctx, "b.pdf", res)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "a.pdf", second.SourcePath)

	pending, err := repo.ListPending(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	events, err := repo.AuditTrail(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{constants.AuditProposed}, actions(events))
}

func TestSaveProposal_RejectsEmptyResult(t *testing.T) {
	_, err := newRepo(t).SaveProposal(context.Background(), "x", extract.Result{Kind: constants.KindLab})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrInvalidInput))
}

func TestGet_NotFound(t *testing.T) {
	_, err := newRepo(t).Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestConfirmLab_UsesDetectedDate(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	p, err := repo.SaveProposal(ctx, "quest.pdf", labResult(datedReport))
	require.NoError(t, err)

	values, err := repo.ConfirmLab(ctx, p.ID, LabEdits{})
	require.NoError(t, err)
	require.Len(t, values, 2)
	for _, v := range values {
		assert.Equal(t, "2024-03-01", v.CollectedOn)
		assert.Equal(t, p.ID, v.ProposalID)
	}

	stored, err := repo.LabValues(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	got, err := repo.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.ReviewConfirmed, got.Status)
	assert.NotNil(t, got.DecidedAt)

	pending, err := repo.ListPending(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, pending)

	events, err := repo.AuditTrail(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{constants.AuditProposed, constants.AuditConfirmed}, actions(events))
}

func TestConfirmLab_RequiresDate(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	p, err := repo.SaveProposal(ctx, "scan.jpg", labResult(undatedReport))
	require.NoError(t, err)
	require.Nil(t, p.DetectedDate)

	_, err = repo.ConfirmLab(ctx, p.ID, LabEdits{})
	require.Error(t, err)
	assert.Equal(t, "DATE_REQUIRED", common.ErrorCode(err))
	assert.True(t, errors.Is(err, common.ErrValidation))

	// nothing was written by the failed attempt
	stored, err := repo.LabValues(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, stored)
	got, err := repo.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.ReviewPending, got.Status)

	_, err = repo.ConfirmLab(ctx, p.ID, LabEdits{CollectedOn: "03/01/2024"})
	assert.Equal(t, "INVALID_DATE", common.ErrorCode(err))

	values, err := repo.ConfirmLab(ctx, p.ID, LabEdits{CollectedOn: "2024-02-28"})
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.Equal(t, "2024-02-28", values[0].CollectedOn)
}

func TestConfirmLab_Edits(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	p, err := repo.SaveProposal(ctx, "quest.pdf", labResult(datedReport))
	require.NoError(t, err)

	values, err := repo.ConfirmLab(ctx, p.ID, LabEdits{
		Values: map[constants.FieldKey]float64{constants.FieldA1C: 6.9},
		Drop:   []constants.FieldKey{constants.FieldLDL},
	})
	require.NoError(t, err)
	require.Len(t, values, 1)
	assert.Equal(t, constants.FieldA1C, values[0].FieldKey)
	assert.InDelta(t, 6.9, values[0].Value, 1e-9)
	require.NotNil(t, values[0].Unit)
	assert.Equal(t, "%", *values[0].Unit)

	events, err := repo.AuditTrail(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{constants.AuditProposed, constants.AuditEdited, constants.AuditConfirmed}, actions(events))

	var detail map[string]any
	require.NoError(t, json.Unmarshal([]byte(events[2].Detail), &detail))
	assert.Equal(t, "2024-03-01", detail["collectedOn"])
	assert.EqualValues(t, 1, detail["values"])
}

func TestConfirmLab_UnknownEditKey(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	p, err := repo.SaveProposal(ctx, "quest.pdf", labResult(datedReport))
	require.NoError(t, err)

	_, err = repo.ConfirmLab(ctx, p.ID, LabEdits{Values: map[constants.FieldKey]float64{constants.FieldEGFR: 90}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrInvalidInput))
}

func TestConfirmLab_DropAll(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	p, err := repo.SaveProposal(ctx, "quest.pdf", labResult(datedReport))
	require.NoError(t, err)

	_, err = repo.ConfirmLab(ctx, p.ID, LabEdits{Drop: []constants.FieldKey{constants.FieldA1C, constants.FieldLDL}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrValidation))
}

func TestConfirm_WrongKindAndTwice(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	lab, err := repo.SaveProposal(ctx, "quest.pdf", labResult(datedReport))
	require.NoError(t, err)

	_, err = repo.ConfirmMedication(ctx, lab.ID, MedicationEdits{})
	assert.True(t, errors.Is(err, common.ErrInvalidInput))

	_, err = repo.ConfirmLab(ctx, lab.ID, LabEdits{})
	require.NoError(t, err)
	_, err = repo.ConfirmLab(ctx, lab.ID, LabEdits{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrConflict))
}

func TestConfirmMedication(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	p, err := repo.SaveProposal(ctx, "label.heic", medicationResult())
	require.NoError(t, err)
	require.NotNil(t, p.Medication)

	refills := 2
	empty := ""
	m, err := repo.ConfirmMedication(ctx, p.ID, MedicationEdits{Refills: &refills, Strength: &empty})
	require.NoError(t, err)
	assert.Equal(t, "LISINOPRIL TABLET", m.DisplayName)
	assert.Nil(t, m.Strength)
	require.NotNil(t, m.Refills)
	assert.Equal(t, 2, *m.Refills)
	require.NotNil(t, m.Quantity)
	assert.Equal(t, 30, *m.Quantity)

	events, err := repo.AuditTrail(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{constants.AuditProposed, constants.AuditEdited, constants.AuditConfirmed}, actions(events))
}

func TestConfirmMedication_ClearCounts(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	p, err := repo.SaveProposal(ctx, "label.heic", medicationResult())
	require.NoError(t, err)

	m, err := repo.ConfirmMedication(ctx, p.ID, MedicationEdits{ClearQuantity: true, ClearRefills: true})
	require.NoError(t, err)
	assert.Nil(t, m.Quantity)
	assert.Nil(t, m.Refills)
	assert.Equal(t, "LISINOPRIL TABLET", m.DisplayName)

	events, err := repo.AuditTrail(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{constants.AuditProposed, constants.AuditEdited, constants.AuditConfirmed}, actions(events))
}

func TestConfirmMedication_Validation(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	p, err := repo.SaveProposal(ctx, "label.heic", medicationResult())
	require.NoError(t, err)

	blank := "  "
	negative := -1
	_, err = repo.ConfirmMedication(ctx, p.ID, MedicationEdits{DisplayName: &blank, Quantity: &negative})
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_ERROR", common.ErrorCode(err))
	assert.Contains(t, err.Error(), "displayName")
	assert.Contains(t, err.Error(), "quantity")

	got, err := repo.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.ReviewPending, got.Status)
}

func TestReject(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	p, err := repo.SaveProposal(ctx, "label.heic", medicationResult())
	require.NoError(t, err)

	err = repo.Reject(ctx, p.ID, "")
	assert.True(t, errors.Is(err, common.ErrValidation))

	require.NoError(t, repo.Reject(ctx, p.ID, "blurry photo"))

	got, err := repo.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.ReviewRejected, got.Status)
	require.NotNil(t, got.Reason)
	assert.Equal(t, "blurry photo", *got.Reason)

	rejected, err := repo.ListByStatus(ctx, constants.ReviewRejected, 10)
	require.NoError(t, err)
	assert.Len(t, rejected, 1)

	assert.True(t, errors.Is(repo.Reject(ctx, p.ID, "again"), common.ErrConflict))

	events, err := repo.AuditTrail(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{constants.AuditProposed, constants.AuditRejected}, actions(events))
}

func openRepo(t *testing.T) (*DB, *proposalRepo) {
	t.Helper()
	db, err := Open(context.Background(), Config{DSN: ":memory:"}, quietLogger())
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db, NewProposalRepository(db, quietLogger()).(*proposalRepo)
}

func TestDecide_OnlyFromPending(t *testing.T) {
	ctx := context.Background()
	db, repo := openRepo(t)
	p, err := repo.SaveProposal(ctx, "quest.pdf", labResult(datedReport))
	require.NoError(t, err)

	// another reviewer confirmed it after our pending check
	_, err = db.SQL.ExecContext(ctx, `UPDATE proposal SET status = 'CONFIRMED' WHERE id = ?`, p.ID)
	require.NoError(t, err)

	err = repo.inTx(ctx, func(tx *sql.Tx) error {
		return repo.decide(ctx, tx, p.ID, constants.ReviewRejected, nil, repo.stamp())
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrConflict))
	assert.Equal(t, "CONFLICT", common.ErrorCode(err))

	got, err := repo.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.ReviewConfirmed, got.Status)
}

func TestSaveProposal_ExistingRowKeepsAudit(t *testing.T) {
	ctx := context.Background()
	_, repo := openRepo(t)
	res := medicationResult()

	for i := 0; i < 3; i++ {
		p, err := repo.SaveProposal(ctx, "label.heic", res)
		require.NoError(t, err)
		assert.Equal(t, res.DocumentID(), p.ID)
	}

	events, err := repo.AuditTrail(ctx, res.DocumentID())
	require.NoError(t, err)
	assert.Equal(t, []string{constants.AuditProposed}, actions(events))
}

func TestListByStatus_OrdersWithinSecond(t *testing.T) {
	ctx := context.Background()
	_, repo := openRepo(t)
	base := time.Date(2024, 3, 1, 12, 0, 5, 0, time.UTC)

	repo.now = func() time.Time { return base }
	whole, err := repo.SaveProposal(ctx, "first.pdf", labResult(datedReport))
	require.NoError(t, err)
	repo.now = func() time.Time { return base.Add(500 * time.Millisecond) }
	half, err := repo.SaveProposal(ctx, "second.pdf", labResult(undatedReport))
	require.NoError(t, err)

	pending, err := repo.ListPending(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, whole.ID, pending[0].ID)
	assert.Equal(t, half.ID, pending[1].ID)
	assert.True(t, pending[0].CreatedAt.Equal(base))
	assert.True(t, pending[1].CreatedAt.Equal(base.Add(500*time.Millisecond)))
}
