package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/docbatch/constants"
	"github.com/joseph-ayodele/docbatch/internal/common"
	"github.com/joseph-ayodele/docbatch/internal/entity"
)

const DefaultListLimit = 20

type ReportRepository interface {
	Save(ctx context.Context, r *entity.Report) error
	Get(ctx context.Context, id uuid.UUID) (*entity.Report, error)
	List(ctx context.Context, limit int) ([]entity.ReportSummary, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type reportRepository struct {
	drv     *entsql.Driver
	dialect string
	logger  *slog.Logger
}

func NewReportRepository(db *DB, logger *slog.Logger) ReportRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &reportRepository{drv: db.Driver, dialect: db.Dialect, logger: logger}
}

// Save stores r; saving the same report twice replaces the earlier copy.
func (r *reportRepository) Save(ctx context.Context, rep *entity.Report) error {
	if rep == nil || rep.ID == uuid.Nil {
		return common.NewAppError("INVALID_REPORT", "report id is required", common.ErrInvalidInput)
	}
	payload, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	tx, err := r.drv.Tx(ctx)
	if err != nil {
		return r.dbError("begin", rep.ID, err)
	}
	b := entsql.Dialect(r.dialect)

	del, delArgs := b.Delete(reportsTable).Where(entsql.EQ("id", rep.ID)).Query()
	if err := tx.Exec(ctx, del, delArgs, nil); err != nil {
		_ = tx.Rollback()
		return r.dbError("save", rep.ID, err)
	}

	var tpl any
	if rep.Template != "" {
		tpl = rep.Template
	}
	ins, insArgs := b.Insert(reportsTable).
		Columns("id", "generated_at", "outcome", "prompt", "template", "success_count", "error_count", "total_selected", "payload").
		Values(rep.ID, rep.GeneratedAt.UTC(), string(rep.Outcome), rep.Prompt, tpl, rep.SuccessCount, rep.ErrorCount, rep.TotalSelected, string(payload)).
		Query()
	var res sql.Result
	if err := tx.Exec(ctx, ins, insArgs, &res); err != nil {
		_ = tx.Rollback()
		return r.dbError("save", rep.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return r.dbError("save", rep.ID, err)
	}
	r.logger.Info("repository.report.saved", "report_id", rep.ID, "items", len(rep.Items), "bytes", len(payload))
	return nil
}

func (r *reportRepository) Get(ctx context.Context, id uuid.UUID) (*entity.Report, error) {
	q, args := entsql.Dialect(r.dialect).
		Select("payload").
		From(entsql.Table(reportsTable)).
		Where(entsql.EQ("id", id)).
		Query()

	var rows entsql.Rows
	if err := r.drv.Query(ctx, q, args, &rows); err != nil {
		return nil, r.dbError("get", id, err)
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, r.dbError("get", id, err)
		}
		return nil, common.NewAppError("REPORT_NOT_FOUND", "report "+id.String()+" not found", common.ErrNotFound)
	}
	var payload []byte
	if err := rows.Scan(&payload); err != nil {
		return nil, r.dbError("get", id, err)
	}
	var rep entity.Report
	if err := json.Unmarshal(payload, &rep); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", id, err)
	}
	return &rep, nil
}

// List returns the newest reports first.
func (r *reportRepository) List(ctx context.Context, limit int) ([]entity.ReportSummary, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	q, args := entsql.Dialect(r.dialect).
		Select("id", "generated_at", "outcome", "prompt", "template", "success_count", "error_count", "total_selected").
		From(entsql.Table(reportsTable)).
		OrderBy(entsql.Desc("generated_at")).
		Limit(limit).
		Query()

	var rows entsql.Rows
	if err := r.drv.Query(ctx, q, args, &rows); err != nil {
		return nil, r.dbError("list", uuid.Nil, err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]entity.ReportSummary, 0, limit)
	for rows.Next() {
		var (
			s        entity.ReportSummary
			outcome  string
			tpl      sql.NullString
			genAt    time.Time
			okCount  int64
			errCount int64
			total    int64
		)
		if err := rows.Scan(&s.ID, &genAt, &outcome, &s.Prompt, &tpl, &okCount, &errCount, &total); err != nil {
			return nil, r.dbError("list", uuid.Nil, err)
		}
		s.GeneratedAt = genAt.UTC()
		s.Outcome = constants.RunState(outcome)
		s.Template = tpl.String
		s.SuccessCount, s.ErrorCount, s.TotalSelected = int(okCount), int(errCount), int(total)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, r.dbError("list", uuid.Nil, err)
	}
	return out, nil
}

func (r *reportRepository) Delete(ctx context.Context, id uuid.UUID) error {
	q, args := entsql.Dialect(r.dialect).Delete(reportsTable).Where(entsql.EQ("id", id)).Query()
	var res sql.Result
	if err := r.drv.Exec(ctx, q, args, &res); err != nil {
		return r.dbError("delete", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.NewAppError("REPORT_NOT_FOUND", "report "+id.String()+" not found", common.ErrNotFound)
	}
	return nil
}

func (r *reportRepository) dbError(op string, id uuid.UUID, err error) error {
	r.logger.Error("repository.report."+op+".failed", "report_id", id, "error", err)
	return fmt.Errorf("%w: report %s: %w", common.ErrDatabase, op, err)
}
