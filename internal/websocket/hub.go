package websocket

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Hub 按用户管理通知推送连接
type Hub struct {
	// userID → 该用户的全部连接
	clients map[string]map[*Client]struct{}

	Register   chan *Client
	Unregister chan *Client

	logger logrus.FieldLogger
	mu     sync.RWMutex
}

// NewHub 创建 Hub
func NewHub(logger logrus.FieldLogger) *Hub {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		logger:     logger,
	}
}

// Run 处理连接注册和注销,ctx 结束时关闭全部连接
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.Register:
			h.mu.Lock()
			if h.clients[client.UserID] == nil {
				h.clients[client.UserID] = make(map[*Client]struct{})
			}
			h.clients[client.UserID][client] = struct{}{}
			h.mu.Unlock()
			h.logger.WithField("user_id", client.UserID).Debug("notification client connected")

		case client := <-h.Unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()
		}
	}
}

// SendToUser 向用户的全部连接推送消息,返回成功入队的连接数
// 发送队列已满的连接视为失效并被移除
func (h *Hub) SendToUser(userID string, message []byte) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := 0
	for client := range h.clients[userID] {
		select {
		case client.Send <- message:
			delivered++
		default:
			h.remove(client)
		}
	}
	return delivered
}

// ClientCount 当前连接数
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}

// remove 调用方需持有写锁
func (h *Hub) remove(client *Client) {
	set, ok := h.clients[client.UserID]
	if !ok {
		return
	}
	if _, ok := set[client]; !ok {
		return
	}
	delete(set, client)
	close(client.Send)
	if len(set) == 0 {
		delete(h.clients, client.UserID)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, set := range h.clients {
		for client := range set {
			h.remove(client)
		}
	}
}
