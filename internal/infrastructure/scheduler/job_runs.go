package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// JobStatus is the outcome of one job run for one tenant
type JobStatus string

const (
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusPartial JobStatus = "PARTIAL" // some students failed
	JobStatusFailed  JobStatus = "FAILED"
)

// JobRunRecord is one execution of a ledger job for one tenant
type JobRunRecord struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	TenantID    uuid.UUID  `gorm:"column:tenant_id;type:uuid;not null;index"`
	Job         string     `gorm:"column:job;size:50;not null"`
	Status      JobStatus  `gorm:"column:status;size:20;not null"`
	Processed   int        `gorm:"column:processed;not null;default:0"`
	Failures    int        `gorm:"column:failures;not null;default:0"`
	Error       string     `gorm:"column:error;type:text"`
	StartedAt   time.Time  `gorm:"column:started_at;not null"`
	CompletedAt *time.Time `gorm:"column:completed_at"`
}

// TableName returns the table name for GORM
func (JobRunRecord) TableName() string {
	return "ledger_job_runs"
}

// JobRunRepository persists job run records
type JobRunRepository struct {
	db *gorm.DB
}

// NewJobRunRepository creates a new JobRunRepository
func NewJobRunRepository(db *gorm.DB) *JobRunRepository {
	return &JobRunRepository{db: db}
}

// Start records a RUNNING row and returns its id
func (r *JobRunRepository) Start(ctx context.Context, tenantID uuid.UUID, job string) (uuid.UUID, error) {
	record := &JobRunRecord{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Job:       job,
		Status:    JobStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return uuid.Nil, err
	}
	return record.ID, nil
}

// Complete stores the outcome of a run
func (r *JobRunRepository) Complete(ctx context.Context, id uuid.UUID, outcome JobOutcome) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).
		Model(&JobRunRecord{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":       outcome.Status(),
			"processed":    outcome.Processed,
			"failures":     outcome.Failures,
			"error":        outcome.errorText(),
			"completed_at": now,
		}).Error
}

// Last returns the most recent run of job for a tenant
func (r *JobRunRepository) Last(ctx context.Context, tenantID uuid.UUID, job string) (*JobRunRecord, error) {
	var record JobRunRecord
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND job = ?", tenantID, job).
		Order("started_at DESC").
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}
