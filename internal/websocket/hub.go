// internal/websocket/hub.go
package websocket

import (
	"context"
	"fmt"
	"log"
	"sync"

	wstypes "talenthub-service/internal/domain/websocket"
	"talenthub-service/internal/pkg/jwt"
	"talenthub-service/internal/pkg/session"
)

type Hub struct {
	// Registered clients by routing key (company ID for employers,
	// identity ID for admins)
	clients map[int64]map[*Client]bool
	mu      sync.RWMutex

	// Registration/unregistration
	Register   chan *Client
	unregister chan *Client

	// Broadcasting
	broadcast chan *BroadcastMessage

	// Auth dependencies
	jwtVerifier    *jwt.Verifier
	sessionManager *session.Manager
}

type BroadcastMessage struct {
	Keys    []int64
	Channel wstypes.ChannelType
	Message *wstypes.WSMessage
}

func NewHub(jwtVerifier *jwt.Verifier, sessionManager *session.Manager) *Hub {
	return &Hub{
		clients:        make(map[int64]map[*Client]bool),
		Register:       make(chan *Client),
		unregister:     make(chan *Client),
		broadcast:      make(chan *BroadcastMessage, 256),
		jwtVerifier:    jwtVerifier,
		sessionManager: sessionManager,
	}
}

// AuthenticateClient validates the JWT token and creates an authenticated client
func (h *Hub) AuthenticateClient(ctx context.Context, token string) (*ClientAuth, error) {
	// Verify JWT token
	claims, err := h.jwtVerifier.VerifyAccessToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	// Check if token is blacklisted
	blacklisted, err := h.sessionManager.IsTokenBlacklisted(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if blacklisted {
		return nil, ErrTokenBlacklisted
	}

	// Verify session exists
	sessionData, err := h.sessionManager.GetSession(ctx, claims.IdentityID, claims.ID)
	if err != nil {
		return nil, ErrSessionExpired
	}

	return &ClientAuth{
		IdentityID: claims.IdentityID,
		CompanyID:  claims.CompanyID,
		SessionID:  claims.ID,
		Roles:      claims.Roles,
		Email:      sessionData.Email,
		Device:     claims.Device,
	}, nil
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.broadcast:
			h.BroadcastMessage(msg)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.key] == nil {
		h.clients[client.key] = make(map[*Client]bool)
	}
	h.clients[client.key][client] = true

	log.Printf("Client connected: identity=%d, session=%s, total=%d",
		client.identityID, client.sessionID, h.totalClients())

	// Send welcome message with user info
	client.SendMessage(wstypes.NewMessage(wstypes.EventTypeConnected, map[string]interface{}{
		"identity_id": client.identityID,
		"company_id":  client.companyID,
		"session_id":  client.sessionID,
		"roles":       client.roles,
		"device":      client.device,
	}))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.clients[client.key]; ok {
		if _, exists := clients[client]; exists {
			delete(clients, client)
			client.Close()

			if len(clients) == 0 {
				delete(h.clients, client.key)
			}

			log.Printf("Client disconnected: identity=%d, session=%s, total=%d",
				client.identityID, client.sessionID, h.totalClients())
		}
	}
}

func (h *Hub) BroadcastMessage(msg *BroadcastMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if msg.Keys == nil {
		// Broadcast to all
		for _, clients := range h.clients {
			for client := range clients {
				if client.IsSubscribed(msg.Channel) {
					client.SendMessage(msg.Message)
				}
			}
		}
	} else {
		// Broadcast to specific recipients
		for _, key := range msg.Keys {
			if clients, ok := h.clients[key]; ok {
				for client := range clients {
					if client.IsSubscribed(msg.Channel) {
						client.SendMessage(msg.Message)
					}
				}
			}
		}
	}
}

func (h *Hub) GetConnectedClients(key int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if clients, ok := h.clients[key]; ok {
		return len(clients)
	}
	return 0
}

func (h *Hub) TotalClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.totalClients()
}

// Public methods for broadcasting

func (h *Hub) BroadcastNotification(companyID int64, notification *wstypes.NotificationData) {
	msg := wstypes.NewMessage(wstypes.EventTypeNotification, notification)
	h.broadcast <- &BroadcastMessage{
		Keys:    []int64{companyID},
		Channel: wstypes.ChannelNotifications,
		Message: msg,
	}
}

func (h *Hub) BroadcastNotificationCount(companyID int64, count int) {
	msg := wstypes.NewMessage(wstypes.EventTypeNotificationCount, map[string]interface{}{
		"unread_count": count,
	})
	h.broadcast <- &BroadcastMessage{
		Keys:    []int64{companyID},
		Channel: wstypes.ChannelNotifications,
		Message: msg,
	}
}

func (h *Hub) BroadcastCreditUpdate(companyID int64, update *wstypes.CreditUpdateData) {
	msg := wstypes.NewMessage(wstypes.EventTypeCreditUpdate, update)
	h.broadcast <- &BroadcastMessage{
		Keys:    []int64{companyID},
		Channel: wstypes.ChannelEntitlements,
		Message: msg,
	}
}

func (h *Hub) BroadcastSubscriptionUpdate(companyID int64, event *wstypes.SubscriptionEventData) {
	msg := wstypes.NewMessage(wstypes.EventTypeSubscriptionUpdate, event)
	h.broadcast <- &BroadcastMessage{
		Keys:    []int64{companyID},
		Channel: wstypes.ChannelEntitlements,
		Message: msg,
	}
}

// IsConnected checks if a recipient has any active connections
func (h *Hub) IsConnected(key int64) bool {
	return h.GetConnectedClients(key) > 0
}

func (h *Hub) totalClients() int {
	total := 0
	for _, clients := range h.clients {
		total += len(clients)
	}
	return total
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, clients := range h.clients {
		for client := range clients {
			client.Close()
		}
	}
}
