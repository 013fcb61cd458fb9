package chat

import "time"

type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

// Job is an asynchronously processed exchange. The API enqueues the job id
// on RabbitMQ and the worker runs the same pipeline HandleMessage uses.
type Job struct {
	ID string `gorm:"primaryKey;size:26"` // ULID length

	UserExternalID string `gorm:"type:varchar(64);not null;index:uniq_job_idempo,unique,priority:1"`
	PersonaID      string `gorm:"type:varchar(64);not null;index"`

	Prompt string `gorm:"type:text;not null"`

	IdempotencyKey *string `gorm:"type:varchar(128);index:uniq_job_idempo,unique,priority:2" json:"idempotency_key"`

	Status JobStatus `gorm:"type:varchar(16);index;not null"`

	// Filled when succeeded
	ResultMessageID *uint64 `gorm:"index"`

	// Filled when failed
	Error *string `gorm:"type:text"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
