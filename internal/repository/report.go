package repository

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"cybershield/internal/models"
)

type ReportRepository interface {
	CreateReport(report *models.Report) error
	GetReportByID(id int64) (*models.Report, error)
	GetReportsForUser(userID int64) ([]*models.Report, error)
	GetReportsByStatus(status string) ([]*models.Report, error)
	GetAllReports() ([]*models.Report, error)
	UpdateReportStatus(id int64, status string) error
	CountReportsByStatus() (map[string]int, error)
}

type reportRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewReportRepository(db *sqlx.DB, logger *zap.Logger) ReportRepository {
	return &reportRepository{db: db, logger: logger}
}

func (r *reportRepository) CreateReport(report *models.Report) error {
	query := `INSERT INTO reports (reporter_id, reported_id, message_id, evidence_path, description, status)
	          VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at`
	return r.db.QueryRowx(query, report.ReporterID, report.ReportedID, report.MessageID,
		report.EvidencePath, report.Description, report.Status).StructScan(report)
}

func (r *reportRepository) GetReportByID(id int64) (*models.Report, error) {
	var report models.Report
	query := `SELECT id, reporter_id, reported_id, message_id, evidence_path, description, status, created_at
	          FROM reports WHERE id = $1`
	err := r.db.Get(&report, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &report, nil
}

func (r *reportRepository) GetReportsForUser(userID int64) ([]*models.Report, error) {
	var reports []*models.Report
	query := `SELECT id, reporter_id, reported_id, message_id, evidence_path, description, status, created_at
	          FROM reports WHERE reporter_id = $1 OR reported_id = $1 ORDER BY created_at DESC`
	err := r.db.Select(&reports, query, userID)
	if err != nil {
		return nil, err
	}
	return reports, nil
}

func (r *reportRepository) GetReportsByStatus(status string) ([]*models.Report, error) {
	var reports []*models.Report
	query := `SELECT id, reporter_id, reported_id, message_id, evidence_path, description, status, created_at
	          FROM reports WHERE status = $1 ORDER BY created_at DESC`
	err := r.db.Select(&reports, query, status)
	if err != nil {
		return nil, err
	}
	return reports, nil
}

func (r *reportRepository) GetAllReports() ([]*models.Report, error) {
	var reports []*models.Report
	query := `SELECT id, reporter_id, reported_id, message_id, evidence_path, description, status, created_at
	          FROM reports ORDER BY created_at DESC`
	err := r.db.Select(&reports, query)
	if err != nil {
		return nil, err
	}
	return reports, nil
}

func (r *reportRepository) UpdateReportStatus(id int64, status string) error {
	result, err := r.db.Exec(`UPDATE reports SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *reportRepository) CountReportsByStatus() (map[string]int, error) {
	rows, err := r.db.Queryx(`SELECT status, COUNT(*) AS cnt FROM reports GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var cnt int
		if err := rows.Scan(&status, &cnt); err != nil {
			r.logger.Error("Failed to scan report status count", zap.Error(err))
			continue
		}
		counts[status] = cnt
	}
	return counts, rows.Err()
}
