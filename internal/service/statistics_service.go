package service

import (
	"context"
	"fmt"

	"github.com/mautops/property-flow/internal/model"
	"github.com/mautops/property-flow/internal/workflow"
	"gorm.io/gorm"
)

// StatisticsService 统计服务接口
type StatisticsService interface {
	GetProcessStatistics(ctx context.Context) (*ProcessStatistics, error)
}

// StatusCount 按状态计数
type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// ProcessStatistics 流程与任务统计
type ProcessStatistics struct {
	Processes       []*StatusCount `json:"processes"`
	Tasks           []*StatusCount `json:"tasks"`
	BypassedTasks   int64          `json:"bypassed_tasks"`
	AverageProgress float64        `json:"average_progress"` // 进行中流程的平均完成百分比
}

type statisticsService struct {
	db *gorm.DB
}

// NewStatisticsService 创建统计服务
func NewStatisticsService(db *gorm.DB) StatisticsService {
	return &statisticsService{db: db}
}

// GetProcessStatistics 统计流程和任务的状态分布
func (s *statisticsService) GetProcessStatistics(ctx context.Context) (*ProcessStatistics, error) {
	db := s.db.WithContext(ctx)
	stats := &ProcessStatistics{}

	if err := db.Model(&model.ProcessInstanceModel{}).
		Select("current_status AS status, COUNT(*) AS count").
		Group("current_status").
		Order("current_status").
		Scan(&stats.Processes).Error; err != nil {
		return nil, fmt.Errorf("failed to get process statistics: %w", err)
	}

	if err := db.Model(&model.TaskModel{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Order("status").
		Scan(&stats.Tasks).Error; err != nil {
		return nil, fmt.Errorf("failed to get task statistics: %w", err)
	}

	if err := db.Model(&model.TaskModel{}).
		Where("is_bypassed = ?", true).
		Count(&stats.BypassedTasks).Error; err != nil {
		return nil, fmt.Errorf("failed to count bypassed tasks: %w", err)
	}

	var avg struct{ Value *float64 }
	if err := db.Model(&model.ProcessInstanceModel{}).
		Select("AVG(percent_complete) AS value").
		Where("current_status IN ?", []string{string(workflow.StatusActive), string(workflow.StatusOnHold)}).
		Scan(&avg).Error; err != nil {
		return nil, fmt.Errorf("failed to get average progress: %w", err)
	}
	if avg.Value != nil {
		stats.AverageProgress = *avg.Value
	}

	return stats, nil
}
