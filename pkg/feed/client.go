package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/status"

	"github.com/fortiblox/critters/pkg/world"
)

// Client errors.
var (
	ErrAlreadyConnected = errors.New("feed client already connected")
	ErrClosed           = errors.New("feed client closed")
	ErrStreamClosed     = errors.New("feed stream closed")
	ErrMaxReconnects    = errors.New("max reconnection attempts reached")
)

// Client receives frames from a feed server.
//
// Frames arrive on the Frames channel, which is closed when the client is
// closed, its context ends, or reconnection gives up. The client reconnects
// with exponential backoff when the stream drops.
type Client struct {
	config Config

	frames chan world.Frame

	// State management
	mu             sync.Mutex
	conn           *grpc.ClientConn
	connected      atomic.Bool
	started        atomic.Bool
	closed         atomic.Bool
	lastEpoch      atomic.Int64
	lastUpdate     atomic.Int64 // Unix nano timestamp
	reconnectCount atomic.Int32
	received       atomic.Uint64
	cancel         context.CancelFunc
	done           chan struct{}
	lastError      error
}

// ClientHealth reports the client's connection state.
type ClientHealth struct {
	Connected      bool
	Endpoint       string
	LastEpoch      int64
	LastUpdate     time.Time
	Received       uint64
	ReconnectCount int
	LastError      error
}

// NewClient creates a new feed client with the given configuration.
// The client is not connected until Connect() is called.
func NewClient(config Config) (*Client, error) {
	config = config.WithDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Client{
		config: config,
		frames: make(chan world.Frame, config.FrameChannelSize),
		done:   make(chan struct{}),
	}, nil
}

// Connect opens the first stream and starts receiving. It blocks until the
// stream is established or fails.
func (c *Client) Connect(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if !c.started.CompareAndSwap(false, true) {
		return ErrAlreadyConnected
	}

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	stream, err := c.open(ctx)
	if err != nil {
		cancel()
		c.started.Store(false)
		return err
	}

	go c.run(ctx, stream)
	return nil
}

// open dials the server and sends the watch request.
func (c *Client) open(ctx context.Context) (grpc.ClientStream, error) {
	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                c.config.KeepaliveTime,
			Timeout:             c.config.KeepaliveTimeout,
			PermitWithoutStream: true,
		}),
		grpc.WithDefaultCallOptions(
			grpc.ForceCodec(jsonCodec{}),
			grpc.MaxCallRecvMsgSize(c.config.MaxMessageSize),
		),
	}

	//nolint:staticcheck // Dial is the API available in the pinned gRPC version
	conn, err := grpc.Dial(c.config.Endpoint, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to dial feed: %w", err)
	}

	stream, err := conn.NewStream(ctx, &watchStream, WatchMethod)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create stream: %w", err)
	}
	if err := stream.SendMsg(&WatchRequest{Every: c.config.Every}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to watch: %w", err)
	}
	if err := stream.CloseSend(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to watch: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	c.connected.Store(true)
	c.lastUpdate.Store(time.Now().UnixNano())
	if c.config.OnConnect != nil {
		c.config.OnConnect()
	}
	return stream, nil
}

// run receives until ctx ends, reconnecting after stream failures.
func (c *Client) run(ctx context.Context, stream grpc.ClientStream) {
	defer close(c.done)
	defer close(c.frames)

	for {
		err := c.receive(ctx, stream)
		c.disconnect(err)
		if ctx.Err() != nil {
			return
		}

		stream = c.reconnect(ctx)
		if stream == nil {
			return
		}
	}
}

// receive forwards frames until the stream ends.
func (c *Client) receive(ctx context.Context, stream grpc.ClientStream) error {
	for {
		var f world.Frame
		if err := stream.RecvMsg(&f); err != nil {
			if err == io.EOF {
				return ErrStreamClosed
			}
			return err
		}

		c.lastEpoch.Store(f.Epoch)
		c.lastUpdate.Store(time.Now().UnixNano())
		c.received.Add(1)

		select {
		case c.frames <- f:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// disconnect records err and releases the current connection.
func (c *Client) disconnect(err error) {
	if err != nil && !errors.Is(err, context.Canceled) && status.Code(err) != codes.Canceled {
		c.setLastError(err)
	}

	c.mu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.mu.Unlock()

	if c.connected.CompareAndSwap(true, false) && c.config.OnDisconnect != nil {
		c.config.OnDisconnect(err)
	}
}

// reconnect retries open with exponential backoff. It returns nil when ctx
// ends or the attempt limit is reached.
func (c *Client) reconnect(ctx context.Context) grpc.ClientStream {
	backoff := c.config.ReconnectMinDelay
	attempt := 0

	for {
		attempt++
		c.reconnectCount.Add(1)

		// Check max reconnects
		if c.config.MaxReconnects > 0 && attempt > c.config.MaxReconnects {
			c.setLastError(ErrMaxReconnects)
			return nil
		}

		// Wait before reconnecting
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}

		stream, err := c.open(ctx)
		if err != nil {
			c.setLastError(err)
			backoff = minDuration(backoff*2, c.config.ReconnectMaxDelay)
			continue
		}

		if c.config.OnReconnect != nil {
			c.config.OnReconnect(attempt)
		}
		return stream
	}
}

// Frames returns the channel of received frames.
func (c *Client) Frames() <-chan world.Frame {
	return c.frames
}

// Health returns the current health status of the client.
func (c *Client) Health() ClientHealth {
	var lastUpdate time.Time
	if ns := c.lastUpdate.Load(); ns != 0 {
		lastUpdate = time.Unix(0, ns)
	}
	return ClientHealth{
		Connected:      c.connected.Load(),
		Endpoint:       c.config.Endpoint,
		LastEpoch:      c.lastEpoch.Load(),
		LastUpdate:     lastUpdate,
		Received:       c.received.Load(),
		ReconnectCount: int(c.reconnectCount.Load()),
		LastError:      c.getLastError(),
	}
}

// Close stops the client and waits for the receive loop to exit.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return ErrClosed
	}

	if !c.started.Load() {
		close(c.frames)
		return nil
	}

	c.cancel()
	<-c.done
	return nil
}

// setLastError safely sets the last error.
func (c *Client) setLastError(err error) {
	c.mu.Lock()
	c.lastError = err
	c.mu.Unlock()
}

// getLastError safely gets the last error.
func (c *Client) getLastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastError
}

// minDuration returns the minimum of two durations.
func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
