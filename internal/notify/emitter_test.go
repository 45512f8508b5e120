package notify_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/mautops/property-flow/internal/database"
	"github.com/mautops/property-flow/internal/model"
	"github.com/mautops/property-flow/internal/notify"
	"github.com/mautops/property-flow/internal/workflow"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// fakePusher 记录推送内容
type fakePusher struct {
	mu       sync.Mutex
	messages map[string][][]byte
}

func (p *fakePusher) SendToUser(userID string, message []byte) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.messages == nil {
		p.messages = make(map[string][][]byte)
	}
	p.messages[userID] = append(p.messages[userID], message)
	return 1
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, database.Migrate(db))
	return db
}

func approved(recipient string) workflow.Notification {
	return workflow.Notification{
		RecipientID: recipient,
		Type:        "process_approved",
		EntityType:  "process",
		EntityID:    "proc-001",
		Title:       "Process approved",
		Body:        "PROC-001 was approved",
		ActionURL:   "/processes/proc-001",
	}
}

// TestEmitter_Create 测试通知落库并推送
func TestEmitter_Create(t *testing.T) {
	db := setupTestDB(t)
	log, _ := test.NewNullLogger()
	pusher := &fakePusher{}
	emitter := notify.NewEmitter(db, pusher, log)
	ctx := context.Background()

	require.NoError(t, emitter.Create(ctx, approved("requester-1")))

	list, err := emitter.List(ctx, "requester-1", true)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "process_approved", list[0].Type)
	assert.Equal(t, "/processes/proc-001", list[0].ActionURL)
	assert.Nil(t, list[0].ReadAt)

	require.Len(t, pusher.messages["requester-1"], 1)
	var pushed model.NotificationModel
	require.NoError(t, json.Unmarshal(pusher.messages["requester-1"][0], &pushed))
	assert.Equal(t, list[0].ID, pushed.ID)
	assert.Equal(t, "Process approved", pushed.Title)
}

// TestEmitter_Create_WithoutPusher 测试未配置推送时只落库
func TestEmitter_Create_WithoutPusher(t *testing.T) {
	db := setupTestDB(t)
	emitter := notify.NewEmitter(db, nil, nil)
	ctx := context.Background()

	require.NoError(t, emitter.Create(ctx, approved("requester-1")))
	require.NoError(t, emitter.Create(ctx, approved("requester-2")))

	list, err := emitter.List(ctx, "requester-1", false)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

// TestEmitter_Create_Invalid 测试缺少接收人时不推送
func TestEmitter_Create_Invalid(t *testing.T) {
	db := setupTestDB(t)
	pusher := &fakePusher{}
	emitter := notify.NewEmitter(db, pusher, nil)

	err := emitter.Create(context.Background(), approved(""))
	assert.Error(t, err)
	assert.Empty(t, pusher.messages)
}
