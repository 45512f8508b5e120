package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gorillaWS "github.com/gorilla/websocket"
	"github.com/mautops/property-flow/internal/auth"
)

// NewUpgrader 创建连接升级器,allowedOrigins 包含 "*" 时不检查来源
func NewUpgrader(allowedOrigins []string) gorillaWS.Upgrader {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return gorillaWS.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || allowed["*"] || allowed[origin]
		},
	}
}

// NotificationHandler 通知推送入口
// 浏览器无法为 websocket 设置请求头,token 通过 query 参数传递
func NotificationHandler(hub *Hub, validator auth.TokenValidator, upgrader gorillaWS.Upgrader) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"code": "UNAUTHORIZED", "message": "missing token"})
			return
		}

		claims, err := validator.ValidateToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"code": "UNAUTHORIZED", "message": "invalid token"})
			return
		}

		// 升级失败时 upgrader 已写入响应
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			hub.logger.WithError(err).Debug("websocket upgrade failed")
			return
		}

		client := NewClient(uuid.New().String(), claims.Subject, hub, conn)
		hub.Register <- client

		go client.ReadPump()
		go client.WritePump()
	}
}
