// Package feed streams environment frames over gRPC.
//
// The service has a single server-streaming method, Watch, that sends a
// world.Frame after every epoch the publisher advances. Messages are JSON
// encoded with a forced codec, so no generated stubs are involved: the
// service descriptor below is registered by hand and clients open the stream
// with the method name directly.
package feed

import (
	"encoding/json"
	"sync"

	"google.golang.org/grpc"

	"github.com/fortiblox/critters/pkg/world"
)

// Service and method names.
const (
	ServiceName = "critters.Feed"
	WatchMethod = "/" + ServiceName + "/Watch"
)

// WatchRequest opens a frame stream.
type WatchRequest struct {
	// Every thins the stream to epochs divisible by Every. Frames that carry
	// a winner are always sent. Zero or one sends every frame.
	Every int64 `json:"every,omitempty"`
}

// wants reports whether f passes the request's filter.
func (r *WatchRequest) wants(f world.Frame) bool {
	if r.Every <= 1 || f.Winner != "" {
		return true
	}
	return f.Epoch%r.Every == 0
}

// jsonCodec is the wire codec for both sides of the feed.
type jsonCodec struct{}

func (jsonCodec) Name() string                               { return "json" }
func (jsonCodec) Marshal(v interface{}) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }

// FeedServer is implemented by the Watch handler.
type FeedServer interface {
	Watch(req *WatchRequest, stream grpc.ServerStream) error
}

var watchStream = grpc.StreamDesc{
	StreamName:    "Watch",
	ServerStreams: true,
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*FeedServer)(nil),
	Streams: []grpc.StreamDesc{{
		StreamName:    watchStream.StreamName,
		ServerStreams: watchStream.ServerStreams,
		Handler:       watchHandler,
	}},
	Metadata: "critters/feed",
}

func watchHandler(srv interface{}, stream grpc.ServerStream) error {
	req := new(WatchRequest)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(FeedServer).Watch(req, stream)
}

// Hub fans frames out to subscribers. Publish never blocks: a subscriber
// whose buffer is full misses frames until it catches up.
type Hub struct {
	mu      sync.Mutex
	subs    map[int]chan world.Frame
	next    int
	last    world.Frame
	hasLast bool
	dropped uint64
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan world.Frame)}
}

// Publish delivers f to every subscriber and remembers it as the latest
// frame.
func (h *Hub) Publish(f world.Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last, h.hasLast = f, true
	for _, ch := range h.subs {
		select {
		case ch <- f:
		default:
			h.dropped++
		}
	}
}

// Subscribe registers a subscriber with the given buffer size. The returned
// function unsubscribes and closes the channel.
func (h *Hub) Subscribe(buffer int) (<-chan world.Frame, func()) {
	frames, _, _, cancel := h.Follow(buffer)
	return frames, cancel
}

// Follow subscribes like Subscribe and also returns the latest frame. Both
// are taken under one lock, so every later frame arrives on the channel and
// the latest frame never does.
func (h *Hub) Follow(buffer int) (<-chan world.Frame, world.Frame, bool, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan world.Frame, buffer)

	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = ch
	last, hasLast := h.last, h.hasLast
	h.mu.Unlock()

	var once sync.Once
	return ch, last, hasLast, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Last returns the most recently published frame.
func (h *Hub) Last() (world.Frame, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last, h.hasLast
}

// Subscribers returns the number of active subscribers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Dropped returns how many deliveries were skipped for slow subscribers.
func (h *Hub) Dropped() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}
