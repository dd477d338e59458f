package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/progression-hub/internal/domain"
	"github.com/progression-hub/internal/progression"
)

// Message types
const (
	MessageTypeLeaderboardUpdate = "leaderboard_update"
	MessageTypePlayerUpdate      = "player_update"
	MessageTypePlayerRemoved     = "player_removed"
	MessageTypeOnlineUpdate      = "online_update"
	MessageTypeLevelUp           = "level_up"
	MessageTypeTransfer          = "coin_transfer"
	MessageTypeLinked            = "player_linked"
	MessageTypeSubscribe         = "subscribe"
	MessageTypeUnsubscribe       = "unsubscribe"
	MessageTypePing              = "ping"
	MessageTypePong              = "pong"
	MessageTypeError             = "error"
)

// Topics a client can subscribe to. Player and leaderboard topics take a suffix,
// e.g. "player:abc" or "leaderboard:kdr".
const (
	TopicEvents            = "events"
	TopicOnline            = "online"
	TopicPlayerPrefix      = "player:"
	TopicLeaderboardPrefix = "leaderboard:"
)

// PlayerTopic returns the topic carrying updates of one player
func PlayerTopic(playerID string) string {
	return TopicPlayerPrefix + playerID
}

// LeaderboardTopic returns the topic carrying a metric's leaderboard
func LeaderboardTopic(metric domain.Metric) string {
	return TopicLeaderboardPrefix + string(metric)
}

// Message represents a WebSocket message
type Message struct {
	Type      string      `json:"type"`
	Topic     string      `json:"topic,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// LevelUpEvent is pushed when a player gains levels
type LevelUpEvent struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	progression.LevelUp
}

// TransferEvent is pushed after a coin transfer
type TransferEvent struct {
	From   domain.PlayerSummary `json:"from"`
	To     domain.PlayerSummary `json:"to"`
	Amount int64                `json:"amount"`
}

// Hub maintains the set of active clients and broadcasts messages
type Hub struct {
	// Registered clients by topic
	clients map[string]map[*Client]bool

	// All connected clients
	allClients map[*Client]bool

	register    chan *Client
	unregister  chan *Client
	broadcast   chan *Message
	subscribe   chan *subscriptionRequest
	unsubscribe chan *subscriptionRequest

	mu     sync.RWMutex
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

type subscriptionRequest struct {
	client *Client
	topic  string
}

// NewHub creates a new Hub
func NewHub(logger *slog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:     make(map[string]map[*Client]bool),
		allClients:  make(map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		broadcast:   make(chan *Message, 256),
		subscribe:   make(chan *subscriptionRequest, 64),
		unsubscribe: make(chan *subscriptionRequest, 64),
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	h.logger.Info("websocket hub started")
	for {
		select {
		case <-h.ctx.Done():
			h.logger.Info("websocket hub stopping")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.allClients[client] = true
			h.mu.Unlock()
			h.logger.Debug("client registered", "client_id", client.id)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.allClients[client]; ok {
				delete(h.allClients, client)
				for topic, clients := range h.clients {
					if _, ok := clients[client]; ok {
						delete(clients, client)
						if len(clients) == 0 {
							delete(h.clients, topic)
						}
					}
				}
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Debug("client unregistered", "client_id", client.id)

		case req := <-h.subscribe:
			h.mu.Lock()
			if _, ok := h.allClients[req.client]; ok {
				if _, ok := h.clients[req.topic]; !ok {
					h.clients[req.topic] = make(map[*Client]bool)
				}
				h.clients[req.topic][req.client] = true
			}
			h.mu.Unlock()
			h.logger.Debug("client subscribed", "client_id", req.client.id, "topic", req.topic)

		case req := <-h.unsubscribe:
			h.mu.Lock()
			if clients, ok := h.clients[req.topic]; ok {
				delete(clients, req.client)
				if len(clients) == 0 {
					delete(h.clients, req.topic)
				}
			}
			h.mu.Unlock()
			h.logger.Debug("client unsubscribed", "client_id", req.client.id, "topic", req.topic)

		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

// Stop stops the hub
func (h *Hub) Stop() {
	h.cancel()
}

// broadcastMessage sends a message to the topic's subscribers, or to everyone
// when the message has no topic
func (h *Hub) broadcastMessage(message *Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("failed to marshal message", "error", err)
		return
	}

	targets := h.allClients
	if message.Topic != "" {
		targets = h.clients[message.Topic]
	}
	for client := range targets {
		select {
		case client.send <- data:
		default:
			h.logger.Warn("client buffer full, skipping", "client_id", client.id)
		}
	}
}

// Publish queues a message for the topic. It never blocks.
func (h *Hub) Publish(topic, msgType string, data interface{}) {
	message := &Message{
		Type:      msgType,
		Topic:     topic,
		Data:      data,
		Timestamp: time.Now(),
	}

	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("broadcast channel full, dropping message", "topic", topic)
	}
}

// LevelUp announces a level gain on the events topic and the player's topic
func (h *Hub) LevelUp(p *domain.Player, up progression.LevelUp) {
	ev := LevelUpEvent{PlayerID: p.PlayerID, PlayerName: p.PlayerName, LevelUp: up}
	h.Publish(TopicEvents, MessageTypeLevelUp, ev)
	if h.GetSubscriberCount(PlayerTopic(p.PlayerID)) > 0 {
		h.Publish(PlayerTopic(p.PlayerID), MessageTypeLevelUp, ev)
	}
}

// Transfer announces a coin transfer on the events topic
func (h *Hub) Transfer(from, to *domain.Player, amount int64) {
	h.Publish(TopicEvents, MessageTypeTransfer, TransferEvent{
		From:   from.Summary(),
		To:     to.Summary(),
		Amount: amount,
	})
}

// Linked announces a completed account link on the events topic
func (h *Hub) Linked(p *domain.Player) {
	h.Publish(TopicEvents, MessageTypeLinked, p.Summary())
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Subscribe adds a client to a topic
func (h *Hub) Subscribe(client *Client, topic string) {
	h.subscribe <- &subscriptionRequest{client: client, topic: topic}
}

// Unsubscribe removes a client from a topic
func (h *Hub) Unsubscribe(client *Client, topic string) {
	h.unsubscribe <- &subscriptionRequest{client: client, topic: topic}
}

// GetSubscriberCount returns the number of subscribers of a topic
func (h *Hub) GetSubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[topic])
}

// GetTotalConnections returns the total number of connected clients
func (h *Hub) GetTotalConnections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.allClients)
}

// GetTopicCount returns the number of topics with at least one subscriber
func (h *Hub) GetTopicCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
