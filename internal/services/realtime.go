package services

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/AnshRaj112/bolt-backend/internal/logger"
	"github.com/AnshRaj112/bolt-backend/internal/models"
)

const accountChannelPrefix = "bolt:account:"

// Event types pushed to connected clients.
const (
	EventGameCompleted = "game.completed"
	EventTaskCompleted = "task.completed"
	EventPurchase      = "shop.purchase"
	EventCoinsAdded    = "coins.added"
	EventXPAdded       = "xp.added"
	EventLogin         = "login"
	EventProfile       = "profile.updated"
	EventFriends       = "friends.updated"
)

// Event is the payload broadcast over Redis and WebSocket after a progression save.
type Event struct {
	Type      string    `json:"type"`
	AccountID string    `json:"accountId"`
	Coins     int64     `json:"coins"`
	XP        int64     `json:"xp"`
	Level     int       `json:"level"`
	LeveledUp bool      `json:"leveledUp"`
	Timestamp time.Time `json:"timestamp"`
}

func NewEvent(kind string, a *models.Account, leveledUp bool) Event {
	return Event{
		Type:      kind,
		AccountID: a.ID.Hex(),
		Coins:     a.Coins,
		XP:        a.XP,
		Level:     a.Level,
		LeveledUp: leveledUp,
		Timestamp: time.Now().UTC(),
	}
}

// EventConn is the part of a WebSocket connection the hub writes to.
type EventConn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// subscriberQueue bounds the events buffered for one slow socket.
const subscriberQueue = 64

// subscriber owns one socket. A single writer drains queue so events reach
// the socket in publish order.
type subscriber struct {
	conn  EventConn
	queue chan Event
}

func (h *EventHub) write(accountID primitive.ObjectID, s *subscriber) {
	for ev := range s.queue {
		if err := s.conn.WriteJSON(ev); err != nil {
			h.log.Debug("event write failed", "accountId", accountID.Hex(), "error", err)
		}
	}
}

// EventHub fans progression events out to this instance's sockets. With Redis,
// events travel through pub/sub so every instance sees every account.
type EventHub struct {
	rdb  *redis.Client
	log  *logger.Logger
	once sync.Once

	mu   sync.RWMutex
	subs map[primitive.ObjectID]map[*subscriber]struct{}
}

func NewEventHub(rdb *redis.Client, log *logger.Logger) *EventHub {
	return &EventHub{
		rdb:  rdb,
		log:  log,
		subs: make(map[primitive.ObjectID]map[*subscriber]struct{}),
	}
}

// Register attaches conn to accountID and returns the detach func.
func (h *EventHub) Register(accountID primitive.ObjectID, conn EventConn) func() {
	sub := &subscriber{conn: conn, queue: make(chan Event, subscriberQueue)}
	h.mu.Lock()
	if h.subs[accountID] == nil {
		h.subs[accountID] = make(map[*subscriber]struct{})
	}
	h.subs[accountID][sub] = struct{}{}
	h.mu.Unlock()
	go h.write(accountID, sub)

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[accountID], sub)
			if len(h.subs[accountID]) == 0 {
				delete(h.subs, accountID)
			}
			close(sub.queue)
			h.mu.Unlock()
		})
	}
}

// Connections reports how many sockets are attached to accountID.
func (h *EventHub) Connections(accountID primitive.ObjectID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[accountID])
}

// Publish delivers ev to the account's sockets on every instance.
func (h *EventHub) Publish(ctx context.Context, ev Event) error {
	if h.rdb == nil {
		h.fanOut(ev)
		return nil
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return h.rdb.Publish(ctx, accountChannelPrefix+ev.AccountID, data).Err()
}

func (h *EventHub) fanOut(ev Event) {
	id, err := primitive.ObjectIDFromHex(ev.AccountID)
	if err != nil {
		return
	}
	// Queues are closed under the write lock, so enqueueing under the read
	// lock never hits a closed channel.
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs[id] {
		select {
		case sub.queue <- ev:
		default:
			h.log.Warn("event queue full, dropping event", "accountId", ev.AccountID, "type", ev.Type)
		}
	}
}

// Start runs the shared Redis subscriber once per instance.
func (h *EventHub) Start(ctx context.Context) {
	if h.rdb == nil {
		h.log.Info("redis not configured; events fan out in process only")
		return
	}
	h.once.Do(func() {
		go h.runSubscriber(ctx)
	})
}

func (h *EventHub) runSubscriber(ctx context.Context) {
	backoff := time.Second
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		func() {
			pubsub := h.rdb.PSubscribe(ctx, accountChannelPrefix+"*")
			defer pubsub.Close()
			h.log.Info("event subscriber started", "pattern", accountChannelPrefix+"*")

			for {
				msg, err := pubsub.ReceiveMessage(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					h.log.Warn("event subscriber error", "error", err, "backoff", backoff)
					time.Sleep(backoff)
					backoff *= 2
					if backoff > 30*time.Second {
						backoff = 30 * time.Second
					}
					return
				}
				backoff = time.Second

				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					h.log.Warn("bad event payload", "channel", msg.Channel, "error", err)
					continue
				}
				if ev.AccountID == "" {
					ev.AccountID = strings.TrimPrefix(msg.Channel, accountChannelPrefix)
				}
				h.fanOut(ev)
			}
		}()
	}
}
