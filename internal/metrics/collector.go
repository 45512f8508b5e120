package metrics

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// StatusCounter 按状态统计流程数量
type StatusCounter interface {
	CountByStatus() (map[string]int64, error)
}

// Collector 周期性采集数据库连接和流程状态分布
type Collector struct {
	db       *gorm.DB
	counter  StatusCounter
	interval time.Duration
	logger   logrus.FieldLogger
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewCollector 创建指标收集器
func NewCollector(db *gorm.DB, counter StatusCounter, interval time.Duration, logger logrus.FieldLogger) *Collector {
	ctx, cancel := context.WithCancel(context.Background())
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Collector{
		db:       db,
		counter:  counter,
		interval: interval,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Start 启动指标收集器
func (c *Collector) Start() {
	go c.collect()
}

// Stop 停止指标收集器
func (c *Collector) Stop() {
	c.cancel()
	<-c.done
}

func (c *Collector) collect() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	defer close(c.done)

	c.CollectOnce()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.CollectOnce()
		}
	}
}

// CollectOnce 立即采集一次
func (c *Collector) CollectOnce() {
	if err := UpdateDatabaseConnections(c.db); err != nil {
		c.logger.WithError(err).Debug("failed to collect database connection stats")
	}
	if c.counter == nil {
		return
	}
	counts, err := c.counter.CountByStatus()
	if err != nil {
		c.logger.WithError(err).Warn("failed to count processes by status")
		return
	}
	UpdateProcessesByStatus(counts)
}
