package ws

import (
	"encoding/json"
	"sync"

	"github.com/debdutta777/noobwriter-sub000/internal/logger"
)

// Hub fans wallet balance updates out to each user's live connections. The
// ledger calls WalletChanged after every committed settlement.
type Hub struct {
	mu      sync.RWMutex
	clients map[int64]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[int64]map[*Client]struct{})}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c.userID] == nil {
		h.clients[c.userID] = make(map[*Client]struct{})
	}
	h.clients[c.userID][c] = struct{}{}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.clients[c.userID]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.clients, c.userID)
		}
	}
}

// walletUpdate is the push payload.
type walletUpdate struct {
	Event     string `json:"event"`
	Balance   int64  `json:"balance"`
	Reserved  int64  `json:"reserved"`
	Spendable int64  `json:"spendable"`
}

// WalletChanged implements service.WalletNotifier. Slow or gone clients are
// dropped, never waited on.
func (h *Hub) WalletChanged(userID int64, balance, reserved int64) {
	h.mu.RLock()
	conns := make([]*Client, 0, len(h.clients[userID]))
	for c := range h.clients[userID] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	if len(conns) == 0 {
		return
	}

	msg, err := json.Marshal(walletUpdate{
		Event:     "wallet_update",
		Balance:   balance,
		Reserved:  reserved,
		Spendable: balance - reserved,
	})
	if err != nil {
		logger.Error("marshal wallet update", "error", err)
		return
	}

	for _, c := range conns {
		c.enqueue(msg)
	}
}
