// internal/infra/database/postgres_report_repository.go
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"guardian_bot/internal/domain/report"
)

type PostgresReportRepository struct {
	session *Session
}

func NewPostgresReportRepository(s *Session) *PostgresReportRepository {
	return &PostgresReportRepository{session: s}
}

const reportColumns = `report_id, group_id, notification_ref, target_user_id, violated_rule, details, evidence_link, urgency, status, created_at`

// Create inserts the report. The store assigns the id, the initial status and
// the creation time, which are written back into rep.
func (r *PostgresReportRepository) Create(ctx context.Context, rep *report.Report) error {
	db, ctx, cancel, err := r.session.command(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	query := `INSERT INTO reports (group_id, target_user_id, violated_rule, details, evidence_link, urgency)
               VALUES ($1, $2, $3, $4, $5, $6)
               RETURNING report_id, status, created_at`
	err = db.QueryRowContext(ctx, query, rep.GroupID, rep.TargetUserID, rep.Rule, rep.Details, rep.EvidenceLink, rep.Urgency).
		Scan(&rep.ID, &rep.Status, &rep.CreatedAt)
	if err != nil {
		return wrapErr("error creating report", err)
	}
	return nil
}

func (r *PostgresReportRepository) AttachNotificationRef(ctx context.Context, reportID int64, ref string) error {
	db, ctx, cancel, err := r.session.command(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	res, err := db.ExecContext(ctx, `UPDATE reports SET notification_ref = $1 WHERE report_id = $2`, ref, reportID)
	if err != nil {
		return wrapErr("error attaching notification reference", err)
	}
	return expectOneRow(res, ErrReportNotFound)
}

// Advance moves the report to next if the lifecycle allows it. The current status
// is locked for the duration of the check so concurrent moderators serialise.
func (r *PostgresReportRepository) Advance(ctx context.Context, reportID int64, next report.Status) (report.Status, error) {
	db, ctx, cancel, err := r.session.command(ctx)
	if err != nil {
		return "", err
	}
	defer cancel()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return "", wrapErr("failed to begin status transaction", err)
	}
	defer tx.Rollback() // Rollback if not committed

	var current report.Status
	err = tx.QueryRowContext(ctx, `SELECT status FROM reports WHERE report_id = $1 FOR UPDATE`, reportID).Scan(&current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrReportNotFound
		}
		return "", wrapErr("error reading report status", err)
	}

	if err := current.CheckAdvance(next); err != nil {
		return current, err
	}

	if _, err := tx.ExecContext(ctx, `UPDATE reports SET status = $1 WHERE report_id = $2`, next, reportID); err != nil {
		return current, wrapErr("error updating report status", err)
	}
	if err := tx.Commit(); err != nil {
		return current, wrapErr("failed to commit report status", err)
	}
	return current, nil
}

// ForceStatus overwrites the status without consulting the lifecycle.
func (r *PostgresReportRepository) ForceStatus(ctx context.Context, reportID int64, status report.Status) error {
	if !status.Valid() {
		return fmt.Errorf("unknown report status %q", status)
	}
	db, ctx, cancel, err := r.session.command(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	res, err := db.ExecContext(ctx, `UPDATE reports SET status = $1 WHERE report_id = $2`, status, reportID)
	if err != nil {
		return wrapErr("error forcing report status", err)
	}
	return expectOneRow(res, ErrReportNotFound)
}

func (r *PostgresReportRepository) Get(ctx context.Context, reportID int64) (*report.Report, error) {
	db, ctx, cancel, err := r.session.command(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	row := db.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM reports WHERE report_id = $1`, reportID)
	rep, err := scanReport(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReportNotFound
		}
		return nil, wrapErr("error getting report by ID", err)
	}
	return rep, nil
}

// List returns at most limit reports, newest id first. A nil status lists all.
func (r *PostgresReportRepository) List(ctx context.Context, status *report.Status, limit int) ([]*report.Report, error) {
	db, ctx, cancel, err := r.session.command(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	var rows *sql.Rows
	if status != nil {
		rows, err = db.QueryContext(ctx, `SELECT `+reportColumns+` FROM reports
               WHERE status = $1 ORDER BY report_id DESC LIMIT $2`, *status, limit)
	} else {
		rows, err = db.QueryContext(ctx, `SELECT `+reportColumns+` FROM reports
               ORDER BY report_id DESC LIMIT $1`, limit)
	}
	if err != nil {
		return nil, wrapErr("error listing reports", err)
	}
	defer rows.Close()

	reports := make([]*report.Report, 0)
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, wrapErr("error scanning report row", err)
		}
		reports = append(reports, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("error iterating report rows", err)
	}
	return reports, nil
}

// Stats counts reports per status. Statuses without reports are absent.
func (r *PostgresReportRepository) Stats(ctx context.Context) (map[report.Status]int, error) {
	db, ctx, cancel, err := r.session.command(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	rows, err := db.QueryContext(ctx, `SELECT status, COUNT(*) FROM reports GROUP BY status`)
	if err != nil {
		return nil, wrapErr("error aggregating report stats", err)
	}
	defer rows.Close()

	stats := make(map[report.Status]int)
	for rows.Next() {
		var status report.Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, wrapErr("error scanning report stats", err)
		}
		stats[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("error iterating report stats", err)
	}
	return stats, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (*report.Report, error) {
	rep := &report.Report{}
	err := row.Scan(
		&rep.ID, &rep.GroupID, &rep.NotificationRef, &rep.TargetUserID, &rep.Rule,
		&rep.Details, &rep.EvidenceLink, &rep.Urgency, &rep.Status, &rep.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return rep, nil
}

func expectOneRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return wrapErr("error reading affected rows", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
