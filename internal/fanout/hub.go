package fanout

import (
	"live-auctions/utils"
	"sync"
)

// Message is one event delivered on a topic
type Message struct {
	Topic   string `json:"topic"`
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Publisher delivers messages without blocking the caller and never reports
// delivery failures back to it.
type Publisher interface {
	Publish(msg Message)
}

// AuctionTopic is the public topic carrying an auction's bid and status events
func AuctionTopic(auctionID string) string {
	return "auction:" + auctionID
}

// UserTopic is a user's private topic
func UserTopic(userID string) string {
	return "user:" + userID
}

// Hub is an in-process publish/subscribe broker. Subscribers only see
// messages published after they joined, in publish order per topic.
type Hub struct {
	mu     sync.Mutex
	topics map[string]*topic
	buffer int
	nextID uint64
}

type topic struct {
	mu   sync.Mutex
	subs map[uint64]*Subscription
}

// Subscription is a live attachment to one topic
type Subscription struct {
	id    uint64
	topic string
	ch    chan Message
	hub   *Hub
	once  sync.Once
}

// NewHub creates a hub whose subscribers buffer up to buffer messages each
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 1
	}
	return &Hub{
		topics: make(map[string]*topic),
		buffer: buffer,
	}
}

// Subscribe attaches a new subscriber to name
func (h *Hub) Subscribe(name string) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	t, ok := h.topics[name]
	if !ok {
		t = &topic{subs: make(map[uint64]*Subscription)}
		h.topics[name] = t
	}
	h.nextID++
	sub := &Subscription{
		id:    h.nextID,
		topic: name,
		ch:    make(chan Message, h.buffer),
		hub:   h,
	}

	t.mu.Lock()
	t.subs[sub.id] = sub
	t.mu.Unlock()
	return sub
}

// Publish fans msg out to the current subscribers of msg.Topic. A subscriber
// whose buffer is full is evicted so one slow reader never stalls the rest.
func (h *Hub) Publish(msg Message) {
	h.mu.Lock()
	t, ok := h.topics[msg.Topic]
	h.mu.Unlock()
	if !ok {
		return
	}

	if t.deliver(msg) {
		h.pruneTopic(msg.Topic, t)
	}
}

// deliver sends msg to every subscriber and reports whether evictions left
// the topic empty
func (t *topic) deliver(msg Message) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	evicted := false
	for id, sub := range t.subs {
		select {
		case sub.ch <- msg:
		default:
			delete(t.subs, id)
			sub.closeChan()
			evicted = true
			utils.Warn("Evicted slow subscriber", map[string]any{
				"topic": msg.Topic,
				"type":  msg.Type,
			})
		}
	}
	return evicted && len(t.subs) == 0
}

// pruneTopic drops t from the hub if it is still registered under name and
// nobody subscribed in the meantime
func (h *Hub) pruneTopic(name string, t *topic) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.topics[name] != t {
		return
	}
	t.mu.Lock()
	empty := len(t.subs) == 0
	t.mu.Unlock()
	if empty {
		delete(h.topics, name)
	}
}

// Subscribers returns how many subscribers are attached to name
func (h *Hub) Subscribers(name string) int {
	h.mu.Lock()
	t, ok := h.topics[name]
	h.mu.Unlock()
	if !ok {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

func (h *Hub) unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	t, ok := h.topics[sub.topic]
	if !ok {
		// evicted and pruned already
		sub.closeChan()
		return
	}
	t.mu.Lock()
	delete(t.subs, sub.id)
	sub.closeChan()
	empty := len(t.subs) == 0
	t.mu.Unlock()

	if empty {
		delete(h.topics, sub.topic)
	}
}

// C returns the delivery channel. It is closed on Close or eviction.
func (s *Subscription) C() <-chan Message {
	return s.ch
}

// Topic returns the subscribed topic name
func (s *Subscription) Topic() string {
	return s.topic
}

// Close detaches the subscriber; safe to call more than once
func (s *Subscription) Close() {
	s.hub.unsubscribe(s)
}

func (s *Subscription) closeChan() {
	s.once.Do(func() { close(s.ch) })
}
