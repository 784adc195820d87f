// Package stream pushes accepted target updates to websocket clients and,
// when redis is configured, to a redis pub/sub channel.
package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/theoremus-urban-solutions/aistrack/model"
)

const (
	sendBuffer     = 64
	publishBuffer  = 1024
	publishTimeout = 2 * time.Second
)

type Hub struct {
	redis   *redis.Client
	channel string
	logger  *slog.Logger

	mu      sync.RWMutex
	clients map[*Client]struct{}

	// outbox feeds the redis publisher; Broadcast never waits on redis.
	outbox chan []byte
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

type Client struct {
	ID   string
	Send chan []byte
}

// NewHub returns a hub. With a nil redis client updates only go to
// websocket clients.
func NewHub(redisClient *redis.Client, channel string, logger *slog.Logger) *Hub {
	h := &Hub{
		redis:   redisClient,
		channel: channel,
		logger:  logger,
		clients: map[*Client]struct{}{},
		done:    make(chan struct{}),
	}
	h.ctx, h.cancel = context.WithCancel(context.Background())
	if redisClient == nil {
		close(h.done)
		return h
	}
	h.outbox = make(chan []byte, publishBuffer)
	go h.publishLoop()
	return h
}

func (h *Hub) publishLoop() {
	defer close(h.done)
	for {
		select {
		case <-h.ctx.Done():
			return
		case payload := <-h.outbox:
			ctx, cancel := context.WithTimeout(h.ctx, publishTimeout)
			err := h.redis.Publish(ctx, updatesChannel(h.channel), payload).Err()
			cancel()
			if err != nil && h.ctx.Err() == nil {
				h.logger.Warn("redis publish failed", "err", err)
			}
		}
	}
}

// Close stops the redis publisher. Updates still queued are dropped.
func (h *Hub) Close() {
	h.cancel()
	<-h.done
}

func (h *Hub) Register() *Client {
	client := &Client{
		ID:   uuid.NewString(),
		Send: make(chan []byte, sendBuffer),
	}

	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("stream client connected", "client", client.ID)
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.Send)
	h.logger.Debug("stream client disconnected", "client", client.ID)
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends payload to every client and queues it for redis without
// blocking. A client whose buffer is full misses the message, and so does
// redis when the outbox is full.
func (h *Hub) Broadcast(payload []byte) {
	h.mu.RLock()
	for client := range h.clients {
		select {
		case client.Send <- payload:
		default:
		}
	}
	h.mu.RUnlock()

	if h.outbox != nil {
		select {
		case h.outbox <- payload:
		default:
			h.logger.Debug("redis outbox full, dropping update")
		}
	}
}

// Publish broadcasts v as JSON. It matches the tracker's update hook.
func (h *Hub) Publish(v *model.VesselTarget) {
	b, err := json.Marshal(v)
	if err != nil {
		h.logger.Error("encode target update", "mmsi", v.MMSI, "err", err)
		return
	}
	h.Broadcast(b)
}

func updatesChannel(channel string) string {
	return channel + ":updates"
}
