package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/medscan/constants"
	"github.com/joseph-ayodele/medscan/internal/common"
	"github.com/joseph-ayodele/medscan/internal/extract"
)

const dateLayout = "2006-01-02"

type ProposalRepository interface {
	// SaveProposal stores an engine result as PENDING. Saving the same
	// document again returns the existing proposal unchanged.
	SaveProposal(ctx context.Context, sourcePath string, result extract.Result) (*Proposal, error)
	Get(ctx context.Context, id string) (*Proposal, error)
	ListPending(ctx context.Context, limit int) ([]*Proposal, error)
	ListByStatus(ctx context.Context, status constants.ReviewStatus, limit int) ([]*Proposal, error)
	ConfirmLab(ctx context.Context, id string, edits LabEdits) ([]ConfirmedLabValue, error)
	ConfirmMedication(ctx context.Context, id string, edits MedicationEdits) (*ConfirmedMedication, error)
	Reject(ctx context.Context, id, reason string) error
	LabValues(ctx context.Context, proposalID string) ([]ConfirmedLabValue, error)
	AuditTrail(ctx context.Context, proposalID string) ([]AuditEvent, error)
}

type proposalRepo struct {
	db  *DB
	log *slog.Logger
	now func() time.Time
}

func NewProposalRepository(db *DB, log *slog.Logger) ProposalRepository {
	if log == nil {
		log = slog.Default()
	}
	return &proposalRepo{db: db, log: log, now: time.Now}
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const proposalColumns = `id, kind, source_path, status, confidence, detected_date, payload, reason, created_at, updated_at, decided_at`

func (r *proposalRepo) SaveProposal(ctx context.Context, sourcePath string, result extract.Result) (*Proposal, error) {
	id := result.DocumentID()
	if id == "" || result.Payload() == nil {
		return nil, common.InvalidInputError("result has no document")
	}
	payload, err := json.Marshal(result.Payload())
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}
	var detected *string
	if result.Lab != nil {
		detected = result.Lab.DetectedDate
	}

	var saved *Proposal
	err = r.inTx(ctx, func(tx *sql.Tx) error {
		now := r.stamp()
		res, err := tx.ExecContext(ctx, r.db.rebind(`INSERT INTO proposal (`+proposalColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, NULL, ?, ?, NULL)
			ON CONFLICT (id) DO NOTHING`),
			id, string(result.Kind), sourcePath, string(constants.ReviewPending),
			string(result.Confidence()), nullString(detected), string(payload), now, now)
		if err != nil {
			return fmt.Errorf("%w: inserting proposal: %v", common.ErrDatabase, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("%w: inserting proposal: %v", common.ErrDatabase, err)
		}
		if n == 0 {
			saved, err = r.get(ctx, tx, id)
			return err
		}
		detail := map[string]any{"kind": result.Kind, "sourcePath": sourcePath, "confidence": result.Confidence()}
		if rid := common.RequestIDFromContext(ctx); rid != "" {
			detail["requestId"] = rid
		}
		if err := r.audit(ctx, tx, id, constants.AuditProposed, detail); err != nil {
			return err
		}
		saved, err = r.get(ctx, tx, id)
		return err
	})
	if err != nil {
		r.log.Error("proposal save failed", "proposal_id", id, "err", err)
		return nil, err
	}
	r.log.Info("proposal saved", "proposal_id", id, "kind", result.Kind, "status", saved.Status)
	return saved, nil
}

func (r *proposalRepo) Get(ctx context.Context, id string) (*Proposal, error) {
	return r.get(ctx, r.db.SQL, id)
}

func (r *proposalRepo) ListPending(ctx context.Context, limit int) ([]*Proposal, error) {
	return r.ListByStatus(ctx, constants.ReviewPending, limit)
}

// ListByStatus returns proposals oldest first. limit <= 0 means no limit.
func (r *proposalRepo) ListByStatus(ctx context.Context, status constants.ReviewStatus, limit int) ([]*Proposal, error) {
	query := `SELECT ` + proposalColumns + ` FROM proposal WHERE status = ? ORDER BY created_at, id`
	args := []any{string(status)}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := r.db.SQL.QueryContext(ctx, r.db.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("%w: listing proposals: %v", common.ErrDatabase, err)
	}
	defer rows.Close()

	var out []*Proposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: listing proposals: %v", common.ErrDatabase, err)
	}
	return out, nil
}

func (r *proposalRepo) ConfirmLab(ctx context.Context, id string, edits LabEdits) ([]ConfirmedLabValue, error) {
	var out []ConfirmedLabValue
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		p, err := r.pending(ctx, tx, id, constants.KindLab)
		if err != nil {
			return err
		}

		collected := edits.CollectedOn
		if collected == "" && p.Lab.DetectedDate != nil {
			collected = *p.Lab.DetectedDate
		}
		if collected == "" {
			return common.NewAppError("DATE_REQUIRED", "a collection date is required to confirm lab values", common.ErrValidation)
		}
		if _, err := time.Parse(dateLayout, collected); err != nil {
			return common.NewAppError("INVALID_DATE", fmt.Sprintf("collection date %q is not YYYY-MM-DD", collected), common.ErrValidation)
		}

		proposed := make(map[constants.FieldKey]bool, len(p.Lab.Candidates))
		for _, c := range p.Lab.Candidates {
			proposed[c.FieldKey] = true
		}
		for k := range edits.Values {
			if !proposed[k] {
				return common.InvalidInputErrorf("no proposed value for %s", k)
			}
		}
		for k := range edits.Units {
			if !proposed[k] {
				return common.InvalidInputErrorf("no proposed value for %s", k)
			}
		}
		dropped := make(map[constants.FieldKey]bool, len(edits.Drop))
		for _, k := range edits.Drop {
			dropped[k] = true
		}

		now := r.stamp()
		for _, c := range p.Lab.Candidates {
			if dropped[c.FieldKey] {
				continue
			}
			v := ConfirmedLabValue{
				ID:          uuid.NewString(),
				ProposalID:  id,
				FieldKey:    c.FieldKey,
				DisplayName: c.DisplayName,
				Value:       c.Value,
				Unit:        c.Unit,
				CollectedOn: collected,
				SourceLine:  c.SourceLine,
			}
			if nv, ok := edits.Values[c.FieldKey]; ok {
				v.Value = nv
			}
			if u, ok := edits.Units[c.FieldKey]; ok {
				v.Unit = nil
				if u != "" {
					v.Unit = &u
				}
			}
			_, err := tx.ExecContext(ctx, r.db.rebind(`INSERT INTO confirmed_lab_value
				(id, proposal_id, field_key, display_name, value, unit, collected_on, source_line, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
				v.ID, v.ProposalID, string(v.FieldKey), v.DisplayName, v.Value, nullString(v.Unit), v.CollectedOn, v.SourceLine, now)
			if err != nil {
				return fmt.Errorf("%w: inserting lab value: %v", common.ErrDatabase, err)
			}
			v.CreatedAt = parseStamp(now)
			out = append(out, v)
		}
		if len(out) == 0 {
			return common.NewAppError("VALIDATION_ERROR", "no lab values left to confirm", common.ErrValidation)
		}

		if !edits.empty() {
			if err := r.audit(ctx, tx, id, constants.AuditEdited, edits); err != nil {
				return err
			}
		}
		if err := r.decide(ctx, tx, id, constants.ReviewConfirmed, nil, now); err != nil {
			return err
		}
		return r.audit(ctx, tx, id, constants.AuditConfirmed, map[string]any{
			"collectedOn": collected, "values": len(out),
		})
	})
	if err != nil {
		r.log.Error("lab confirm failed", "proposal_id", id, "err", err)
		return nil, err
	}
	r.log.Info("lab proposal confirmed", "proposal_id", id, "values", len(out))
	return out, nil
}

func (r *proposalRepo) ConfirmMedication(ctx context.Context, id string, edits MedicationEdits) (*ConfirmedMedication, error) {
	var out *ConfirmedMedication
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		p, err := r.pending(ctx, tx, id, constants.KindMedication)
		if err != nil {
			return err
		}
		m := mergeMedication(p.Medication, edits)

		v := common.NewValidator().
			Field("displayName", m.DisplayName, common.Required, common.MaxLength(200)).
			Field("directions", m.Directions, common.MaxLength(1000)).
			Field("quantity", m.Quantity, common.NonNegative).
			Field("refills", m.Refills, common.NonNegative)
		if err := common.ValidateAndReturnError(v); err != nil {
			return err
		}
		if m.FillDate != nil {
			if _, err := time.Parse(dateLayout, *m.FillDate); err != nil {
				return common.NewAppError("INVALID_DATE", fmt.Sprintf("fill date %q is not YYYY-MM-DD", *m.FillDate), common.ErrValidation)
			}
		}

		now := r.stamp()
		m.ID = uuid.NewString()
		m.ProposalID = id
		_, err = tx.ExecContext(ctx, r.db.rebind(`INSERT INTO confirmed_medication
			(id, proposal_id, display_name, strength, directions, pharmacy, pharmacy_phone, rx_number, ndc,
			 quantity, refills, fill_date, patient_name, prescriber, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			m.ID, m.ProposalID, m.DisplayName, nullString(m.Strength), nullString(m.Directions),
			nullString(m.Pharmacy), nullString(m.PharmacyPhone), nullString(m.RxNumber), nullString(m.NDC),
			nullInt(m.Quantity), nullInt(m.Refills), nullString(m.FillDate), nullString(m.PatientName),
			nullString(m.Prescriber), now)
		if err != nil {
			return fmt.Errorf("%w: inserting medication: %v", common.ErrDatabase, err)
		}
		m.CreatedAt = parseStamp(now)

		if !edits.empty() {
			if err := r.audit(ctx, tx, id, constants.AuditEdited, edits); err != nil {
				return err
			}
		}
		if err := r.decide(ctx, tx, id, constants.ReviewConfirmed, nil, now); err != nil {
			return err
		}
		out = &m
		return r.audit(ctx, tx, id, constants.AuditConfirmed, map[string]any{"medicationId": m.ID})
	})
	if err != nil {
		r.log.Error("medication confirm failed", "proposal_id", id, "err", err)
		return nil, err
	}
	r.log.Info("medication proposal confirmed", "proposal_id", id, "medication_id", out.ID)
	return out, nil
}

func (r *proposalRepo) Reject(ctx context.Context, id, reason string) error {
	v := common.NewValidator().Field("reason", reason, common.Required, common.MaxLength(500))
	if err := common.ValidateAndReturnError(v); err != nil {
		return err
	}
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := r.pending(ctx, tx, id, ""); err != nil {
			return err
		}
		if err := r.decide(ctx, tx, id, constants.ReviewRejected, &reason, r.stamp()); err != nil {
			return err
		}
		return r.audit(ctx, tx, id, constants.AuditRejected, map[string]any{"reason": reason})
	})
	if err != nil {
		r.log.Error("proposal reject failed", "proposal_id", id, "err", err)
		return err
	}
	r.log.Info("proposal rejected", "proposal_id", id)
	return nil
}

func (r *proposalRepo) LabValues(ctx context.Context, proposalID string) ([]ConfirmedLabValue, error) {
	rows, err := r.db.SQL.QueryContext(ctx, r.db.rebind(`SELECT id, proposal_id, field_key, display_name, value, unit,
		collected_on, source_line, created_at FROM confirmed_lab_value WHERE proposal_id = ? ORDER BY created_at, id`), proposalID)
	if err != nil {
		return nil, fmt.Errorf("%w: listing lab values: %v", common.ErrDatabase, err)
	}
	defer rows.Close()

	var out []ConfirmedLabValue
	for rows.Next() {
		var (
			v       ConfirmedLabValue
			key     string
			unit    sql.NullString
			created string
		)
		if err := rows.Scan(&v.ID, &v.ProposalID, &key, &v.DisplayName, &v.Value, &unit, &v.CollectedOn, &v.SourceLine, &created); err != nil {
			return nil, fmt.Errorf("%w: scanning lab value: %v", common.ErrDatabase, err)
		}
		v.FieldKey = constants.FieldKey(key)
		v.Unit = fromNull(unit)
		v.CreatedAt = parseStamp(created)
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *proposalRepo) AuditTrail(ctx context.Context, proposalID string) ([]AuditEvent, error) {
	rows, err := r.db.SQL.QueryContext(ctx, r.db.rebind(`SELECT id, proposal_id, action, detail, created_at
		FROM audit_event WHERE proposal_id = ? ORDER BY seq`), proposalID)
	if err != nil {
		return nil, fmt.Errorf("%w: listing audit events: %v", common.ErrDatabase, err)
	}
	defer rows.Close()

	var out []AuditEvent
	for rows.Next() {
		var (
			e       AuditEvent
			created string
		)
		if err := rows.Scan(&e.ID, &e.ProposalID, &e.Action, &e.Detail, &created); err != nil {
			return nil, fmt.Errorf("%w: scanning audit event: %v", common.ErrDatabase, err)
		}
		e.CreatedAt = parseStamp(created)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *proposalRepo) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.SQL.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", common.ErrDatabase, err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", common.ErrDatabase, err)
	}
	return nil
}

func (r *proposalRepo) get(ctx context.Context, q querier, id string) (*Proposal, error) {
	row := q.QueryRowContext(ctx, r.db.rebind(`SELECT `+proposalColumns+` FROM proposal WHERE id = ?`), id)
	p, err := scanProposal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFoundError(fmt.Sprintf("proposal %s not found", id))
	}
	return p, err
}

// pending loads a proposal that is still open for review. kind "" accepts any.
func (r *proposalRepo) pending(ctx context.Context, q querier, id string, kind constants.DocumentKind) (*Proposal, error) {
	p, err := r.get(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if p.Status != constants.ReviewPending {
		return nil, common.NewAppError("CONFLICT", fmt.Sprintf("proposal %s is already %s", id, p.Status), common.ErrConflict)
	}
	if kind != "" && p.Kind != kind {
		return nil, common.InvalidInputErrorf("proposal %s is %s, not %s", id, p.Kind, kind)
	}
	return p, nil
}

// decide moves a PENDING proposal to status. The status guard makes a
// concurrent decision on the same proposal a CONFLICT.
func (r *proposalRepo) decide(ctx context.Context, q querier, id string, status constants.ReviewStatus, reason *string, now string) error {
	res, err := q.ExecContext(ctx, r.db.rebind(`UPDATE proposal SET status = ?, reason = ?, decided_at = ?, updated_at = ?
		WHERE id = ? AND status = ?`),
		string(status), nullString(reason), now, now, id, string(constants.ReviewPending))
	if err != nil {
		return fmt.Errorf("%w: updating proposal: %v", common.ErrDatabase, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: updating proposal: %v", common.ErrDatabase, err)
	}
	if n != 1 {
		return common.NewAppError("CONFLICT", fmt.Sprintf("proposal %s was decided concurrently", id), common.ErrConflict)
	}
	return nil
}

func (r *proposalRepo) audit(ctx context.Context, q querier, proposalID, action string, detail any) error {
	b, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("encoding audit detail: %w", err)
	}
	var seq int64
	if err := q.QueryRowContext(ctx, r.db.rebind(`SELECT COALESCE(MAX(seq), 0) + 1 FROM audit_event WHERE proposal_id = ?`), proposalID).Scan(&seq); err != nil {
		return fmt.Errorf("%w: audit sequence: %v", common.ErrDatabase, err)
	}
	_, err = q.ExecContext(ctx, r.db.rebind(`INSERT INTO audit_event (id, proposal_id, seq, action, detail, created_at) VALUES (?, ?, ?, ?, ?, ?)`),
		uuid.NewString(), proposalID, seq, action, string(b), r.stamp())
	if err != nil {
		return fmt.Errorf("%w: inserting audit event: %v", common.ErrDatabase, err)
	}
	return nil
}

// stampLayout is fixed width so stored timestamps sort as text.
const stampLayout = "2006-01-02T15:04:05.000000000Z07:00"

func (r *proposalRepo) stamp() string {
	return r.now().UTC().Format(stampLayout)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProposal(s scanner) (*Proposal, error) {
	var (
		p                         Proposal
		kind, status, conf        string
		detected, reason, decided sql.NullString
		payload, created, updated string
	)
	err := s.Scan(&p.ID, &kind, &p.SourcePath, &status, &conf, &detected, &payload, &reason, &created, &updated, &decided)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: scanning proposal: %v", common.ErrDatabase, err)
	}
	p.Kind = constants.DocumentKind(kind)
	p.Status = constants.ReviewStatus(status)
	p.Confidence = constants.Tier(conf)
	p.DetectedDate = fromNull(detected)
	p.Reason = fromNull(reason)
	p.CreatedAt = parseStamp(created)
	p.UpdatedAt = parseStamp(updated)
	if decided.Valid {
		t := parseStamp(decided.String)
		p.DecidedAt = &t
	}

	switch p.Kind {
	case constants.KindLab:
		p.Lab = &extract.LabResult{}
		err = json.Unmarshal([]byte(payload), p.Lab)
	case constants.KindMedication:
		p.Medication = &extract.MedicationLabelResult{}
		err = json.Unmarshal([]byte(payload), p.Medication)
	default:
		err = fmt.Errorf("unknown proposal kind %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding proposal %s: %w", p.ID, err)
	}
	return &p, nil
}

func mergeMedication(r *extract.MedicationLabelResult, e MedicationEdits) ConfirmedMedication {
	pick := func(edit, proposed *string) *string {
		if edit != nil {
			if *edit == "" {
				return nil
			}
			return edit
		}
		return proposed
	}
	pickInt := func(clear bool, edit, proposed *int) *int {
		if clear {
			return nil
		}
		if edit != nil {
			return edit
		}
		return proposed
	}
	m := ConfirmedMedication{
		Strength:      pick(e.Strength, r.Strength),
		Directions:    pick(e.Directions, r.Directions),
		Pharmacy:      pick(e.Pharmacy, r.Pharmacy),
		PharmacyPhone: pick(e.PharmacyPhone, r.PharmacyPhone),
		RxNumber:      pick(e.RxNumber, r.RxNumber),
		NDC:           pick(e.NDC, r.NDC),
		Quantity:      pickInt(e.ClearQuantity, e.Quantity, r.Quantity),
		Refills:       pickInt(e.ClearRefills, e.Refills, r.Refills),
		FillDate:      pick(e.FillDate, r.FillDate),
		PatientName:   pick(e.PatientName, r.PatientName),
		Prescriber:    pick(e.Prescriber, r.Prescriber),
	}
	if name := pick(e.DisplayName, r.DisplayName); name != nil {
		m.DisplayName = *name
	}
	return m
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullInt(n *int) any {
	if n == nil {
		return nil
	}
	return int64(*n)
}

func fromNull(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func parseStamp(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
