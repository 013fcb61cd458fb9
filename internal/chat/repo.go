package chat

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/chatgram/chatgram/internal/common"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// GetOrCreateUser resolves the transport's opaque external id, creating the
// user on first contact. Concurrent calls are reconciled through the unique
// index: a failed insert falls back to fetching the winner's row.
func (r *Repo) GetOrCreateUser(ctx context.Context, externalID string) (*User, error) {
	var u User
	err := r.db.WithContext(ctx).Where("external_id = ?", externalID).First(&u).Error
	if err == nil {
		return &u, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	u = User{ExternalID: externalID}
	if createErr := r.db.WithContext(ctx).Create(&u).Error; createErr != nil {
		var existing User
		if getErr := r.db.WithContext(ctx).Where("external_id = ?", externalID).First(&existing).Error; getErr == nil {
			return &existing, nil
		}
		return nil, createErr
	}
	return &u, nil
}

// GetOrCreateInstance returns the single active instance for the
// (user, persona) pair, creating it lazily on first message. The unique
// (user_id, persona_id) index guarantees at most one row per pair even
// under concurrent creation.
func (r *Repo) GetOrCreateInstance(ctx context.Context, userID uint64, personaID string, now time.Time) (*ChatInstance, bool, error) {
	var inst ChatInstance
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND persona_id = ?", userID, personaID).
		First(&inst).Error
	if err == nil {
		return &inst, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	iid, err := common.NewULID()
	if err != nil {
		return nil, false, err
	}
	inst = ChatInstance{
		InstanceID:      iid,
		UserID:          userID,
		PersonaID:       personaID,
		WindowStartedAt: now,
		LastActivityAt:  now,
	}
	if createErr := r.db.WithContext(ctx).Create(&inst).Error; createErr != nil {
		var existing ChatInstance
		if getErr := r.db.WithContext(ctx).
			Where("user_id = ? AND persona_id = ?", userID, personaID).
			First(&existing).Error; getErr == nil {
			return &existing, false, nil
		}
		return nil, false, createErr
	}
	return &inst, true, nil
}

// ListMessagesAsc returns the full history oldest to newest, prompt order.
func (r *Repo) ListMessagesAsc(ctx context.Context, instanceID string) ([]Message, error) {
	var msgs []Message
	if err := r.db.WithContext(ctx).
		Where("instance_id = ?", instanceID).
		Order("id ASC").
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

// ListMessagesDesc returns messages newest to oldest for history paging.
func (r *Repo) ListMessagesDesc(ctx context.Context, instanceID string, limit int, beforeID uint64) ([]Message, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	q := r.db.WithContext(ctx).
		Where("instance_id = ?", instanceID).
		Order("id DESC").
		Limit(limit)
	if beforeID > 0 {
		q = q.Where("id < ?", beforeID)
	}

	var msgs []Message
	if err := q.Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

// ExchangeCost is the counter delta applied after a successful model call.
type ExchangeCost struct {
	Tokens int
	Chars  int
}

// AppendExchange stores the user and assistant messages and applies the
// counter increments in a single transaction. MessageCount tracks user
// messages sent; tokens and chars cover both sides of the exchange.
func (r *Repo) AppendExchange(ctx context.Context, inst *ChatInstance, userMsg, assistantMsg *Message, cost ExchangeCost, now time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(userMsg).Error; err != nil {
			return err
		}
		if err := tx.Create(assistantMsg).Error; err != nil {
			return err
		}
		return tx.Model(&ChatInstance{}).
			Where("id = ?", inst.ID).
			Updates(map[string]any{
				"message_count":    gorm.Expr("message_count + ?", 1),
				"token_count":      gorm.Expr("token_count + ?", cost.Tokens),
				"char_count":       gorm.Expr("char_count + ?", cost.Chars),
				"last_activity_at": now,
			}).Error
	})
}

// ResetInstance clears history and counters atomically and restarts the
// usage window. The instance row survives; only its state is destroyed.
func (r *Repo) ResetInstance(ctx context.Context, inst *ChatInstance, now time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("instance_id = ?", inst.InstanceID).Delete(&Message{}).Error; err != nil {
			return err
		}
		return tx.Model(&ChatInstance{}).
			Where("id = ?", inst.ID).
			Updates(map[string]any{
				"message_count":     0,
				"token_count":       0,
				"char_count":        0,
				"window_started_at": now,
				"last_activity_at":  now,
			}).Error
	})
}

// GetUserByExternalID looks up an existing user without creating one.
func (r *Repo) GetUserByExternalID(ctx context.Context, externalID string) (*User, error) {
	var u User
	if err := r.db.WithContext(ctx).Where("external_id = ?", externalID).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// GetInstanceByPair looks up an existing instance without creating one.
func (r *Repo) GetInstanceByPair(ctx context.Context, userID uint64, personaID string) (*ChatInstance, error) {
	var inst ChatInstance
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND persona_id = ?", userID, personaID).
		First(&inst).Error; err != nil {
		return nil, err
	}
	return &inst, nil
}

// GetInstance reloads an instance by primary key.
func (r *Repo) GetInstance(ctx context.Context, id uint64) (*ChatInstance, error) {
	var inst ChatInstance
	if err := r.db.WithContext(ctx).First(&inst, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &inst, nil
}

// Job CRUD

func (r *Repo) GetJobByID(ctx context.Context, id string) (*Job, error) {
	var j Job
	if err := r.db.WithContext(ctx).First(&j, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &j, nil
}

func (r *Repo) UpdateJobStatusRunning(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&Job{}).
		Where("id = ? AND status = ?", id, JobQueued).
		Update("status", JobRunning).Error
}

func (r *Repo) MarkJobSucceeded(ctx context.Context, id string, assistantMsgID uint64) error {
	return r.db.WithContext(ctx).Model(&Job{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":            JobSucceeded,
			"result_message_id": assistantMsgID,
			"error":             nil,
		}).Error
}

func (r *Repo) MarkJobFailed(ctx context.Context, id string, errMsg string) error {
	return r.db.WithContext(ctx).Model(&Job{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":            JobFailed,
			"error":             errMsg,
			"result_message_id": nil,
		}).Error
}

func (r *Repo) getJobByUserAndIdempotencyKey(ctx context.Context, userExternalID, key string) (*Job, error) {
	var job Job
	err := r.db.WithContext(ctx).
		Where("user_external_id = ? AND idempotency_key = ?", userExternalID, key).
		First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// CreateJobOrGetExisting tries to create a job; if the (user, key) pair
// already exists it returns the existing job instead.
func (r *Repo) CreateJobOrGetExisting(ctx context.Context, job *Job) (*Job, bool, error) {
	if job.IdempotencyKey == nil || *job.IdempotencyKey == "" {
		job.IdempotencyKey = nil
		if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
			return nil, false, err
		}
		return job, true, nil
	}

	err := r.db.WithContext(ctx).Create(job).Error
	if err == nil {
		return job, true, nil
	}

	existing, getErr := r.getJobByUserAndIdempotencyKey(ctx, job.UserExternalID, *job.IdempotencyKey)
	if getErr == nil {
		return existing, false, nil
	}
	if errors.Is(getErr, gorm.ErrRecordNotFound) {
		return nil, false, err
	}
	return nil, false, getErr
}
