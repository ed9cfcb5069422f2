package server

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Cross-origin policy is enforced by the CORS layer; the socket itself
	// is already behind bearer auth.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type wsIncoming struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type wsOutgoing struct {
	SessionID string    `json:"session_id,omitempty"`
	Reply     string    `json:"reply,omitempty"`
	Source    string    `json:"source,omitempty"`
	Intent    string    `json:"intent,omitempty"`
	Category  string    `json:"category,omitempty"`
	Severity  string    `json:"severity,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// chatWebSocket streams chat over one socket. Each frame carries one user
// message; the reply frame mirrors the POST message response. An empty
// session_id answers through the user's ad-hoc engine session without
// persistence.
func (a *App) chatWebSocket(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	conn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()
	for {
		incoming := wsIncoming{}
		if err := conn.ReadJSON(&incoming); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("websocket read failed: %v", err)
			}
			return
		}

		message := strings.TrimSpace(incoming.Message)
		if message == "" {
			a.wsSend(conn, wsOutgoing{Error: "Message must not be empty", Timestamp: time.Now().UTC()})
			continue
		}

		engineSessionID := "adhoc:" + user.ID
		persist := false
		sessionID := strings.TrimSpace(incoming.SessionID)
		if sessionID != "" {
			if _, err := a.sessionOwnedByUser(ctx, sessionID, user.ID); err != nil {
				a.wsSend(conn, wsOutgoing{SessionID: sessionID, Error: err.Error(), Timestamp: time.Now().UTC()})
				continue
			}
			engineSessionID = sessionID
			persist = true
		}

		reply := a.answer(ctx, engineSessionID, message)
		if persist {
			if err := a.persistExchange(ctx, sessionID, message, reply); err != nil {
				log.Printf("websocket persist failed: %v", err)
			}
		}

		a.wsSend(conn, wsOutgoing{
			SessionID: sessionID,
			Reply:     reply.Text,
			Source:    string(reply.Source),
			Intent:    reply.Intent,
			Category:  reply.Category,
			Severity:  reply.Severity,
			Timestamp: time.Now().UTC(),
		})
	}
}

func (a *App) wsSend(conn *websocket.Conn, payload wsOutgoing) {
	if err := conn.WriteJSON(payload); err != nil {
		log.Printf("websocket write failed: %v", err)
	}
}
