package workflow

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mautops/property-flow/internal/metrics"
	"github.com/mautops/property-flow/internal/repository"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	defaultMinReasonLength    = 10
	defaultMaxConflictRetries = 3
)

// RoleResolver 解析用户的角色集合
type RoleResolver interface {
	ResolveRoles(ctx context.Context, userID string) ([]string, error)
}

// Notification 站内通知
type Notification struct {
	RecipientID string
	Type        string
	EntityType  string
	EntityID    string
	Title       string
	Body        string
	ActionURL   string
}

// Notifier 通知发送方,调用方不关心投递结果
type Notifier interface {
	Create(ctx context.Context, n Notification) error
}

// Options 引擎配置
type Options struct {
	PrivilegedRoles    []string
	MinReasonLength    int
	MaxConflictRetries int
	Logger             logrus.FieldLogger
	Now                func() time.Time
}

// Engine 流程引擎
type Engine struct {
	db              *gorm.DB
	roles           RoleResolver
	notifier        Notifier
	logger          logrus.FieldLogger
	now             func() time.Time
	minReasonLength int
	maxRetries      int

	mu         sync.RWMutex
	privileged map[string]bool
}

// NewEngine 创建流程引擎
func NewEngine(db *gorm.DB, roles RoleResolver, notifier Notifier, opts Options) *Engine {
	e := &Engine{
		db:              db,
		roles:           roles,
		notifier:        notifier,
		logger:          opts.Logger,
		now:             opts.Now,
		minReasonLength: opts.MinReasonLength,
		maxRetries:      opts.MaxConflictRetries,
	}
	if e.logger == nil {
		e.logger = logrus.StandardLogger()
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.minReasonLength <= 0 {
		e.minReasonLength = defaultMinReasonLength
	}
	if e.maxRetries <= 0 {
		e.maxRetries = defaultMaxConflictRetries
	}
	e.SetPrivilegedRoles(opts.PrivilegedRoles)
	return e
}

// SetPrivilegedRoles 更新特权角色集合,配置热更新时调用
func (e *Engine) SetPrivilegedRoles(roles []string) {
	set := make(map[string]bool, len(roles))
	for _, r := range roles {
		set[r] = true
	}
	e.mu.Lock()
	e.privileged = set
	e.mu.Unlock()
}

// Actor 一次请求的调用者,角色在请求开始时解析一次
type Actor struct {
	ID         string
	Roles      []string
	Privileged bool
}

// ResolveActor 解析调用者角色并计算是否具备特权
func (e *Engine) ResolveActor(ctx context.Context, userID string) (Actor, error) {
	actor := Actor{ID: userID}
	if userID == "" || e.roles == nil {
		return actor, nil
	}

	roles, err := e.roles.ResolveRoles(ctx, userID)
	if err != nil {
		return actor, storageErr("failed to resolve roles", err)
	}
	actor.Roles = roles

	e.mu.RLock()
	for _, r := range roles {
		if e.privileged[r] {
			actor.Privileged = true
			break
		}
	}
	e.mu.RUnlock()
	return actor, nil
}

// stores 单个事务内使用的仓储集合
type stores struct {
	processes  repository.ProcessRepository
	stages     repository.StageRepository
	tasks      repository.TaskRepository
	subtasks   repository.SubtaskRepository
	documents  repository.DocumentRepository
	properties repository.PropertyRepository
	history    repository.StateHistoryRepository
}

func newStores(tx *gorm.DB) *stores {
	return &stores{
		processes:  repository.NewProcessRepository(tx),
		stages:     repository.NewStageRepository(tx),
		tasks:      repository.NewTaskRepository(tx),
		subtasks:   repository.NewSubtaskRepository(tx),
		documents:  repository.NewDocumentRepository(tx),
		properties: repository.NewPropertyRepository(tx),
		history:    repository.NewStateHistoryRepository(tx),
	}
}

// unitOfWork 在事务内执行 fn
// 乐观锁冲突时整体回滚并重新读取、重新计算,不做字段级合并
func (e *Engine) unitOfWork(ctx context.Context, op string, fn func(s *stores) error) error {
	var err error
	for attempt := 1; attempt <= e.maxRetries; attempt++ {
		err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(newStores(tx))
		})
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrConflict) && !errors.Is(err, repository.ErrVersionConflict) {
			return storageErr("failed to "+op, err)
		}

		metrics.RecordVersionConflict(op)
		e.logger.WithFields(logrus.Fields{
			"op":      op,
			"attempt": attempt,
		}).Warn("optimistic lock conflict, retrying")

		if ctx.Err() != nil {
			return storageErr("failed to "+op, ctx.Err())
		}
	}
	return storageErr("failed to "+op, err)
}

// notify 发送通知,失败只记录日志
func (e *Engine) notify(ctx context.Context, notifications []Notification) {
	if e.notifier == nil {
		return
	}
	for _, n := range notifications {
		if n.RecipientID == "" {
			continue
		}
		if err := e.notifier.Create(ctx, n); err != nil {
			e.logger.WithError(err).WithFields(logrus.Fields{
				"recipient": n.RecipientID,
				"type":      n.Type,
				"entity_id": n.EntityID,
			}).Warn("failed to emit notification")
		}
	}
}

func strPtr(s string) *string {
	return &s
}

func timePtr(t time.Time) *time.Time {
	return &t
}
