package rpc

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yanun0323/errors"

	"main/pkg/exception"
)

// ClientConfig controls connection and liveness behavior.
type ClientConfig struct {
	// ReqAddress is the server's request/response channel.
	ReqAddress string
	// SubAddress is the server's broadcast channel.
	SubAddress string
	// HeartbeatTolerance is the silence after the last heartbeat that counts
	// as a lost connection. Defaults to three heartbeat intervals.
	HeartbeatTolerance time.Duration
	// DialTimeout bounds Connect. Defaults to three seconds.
	DialTimeout time.Duration
	// OnDisconnect runs once when heartbeats go silent past the tolerance.
	// It is re-armed by the next heartbeat. Optional.
	OnDisconnect func()
}

// TopicHandler consumes broadcast packets. Handlers run on the client's
// single receive goroutine.
type TopicHandler func(Packet)

// Client talks to a Server over both channels. Calls are synchronous;
// broadcasts arrive on registered topic handlers.
type Client struct {
	cfg ClientConfig

	mu        sync.Mutex
	connected bool
	reqConn   net.Conn
	subConn   net.Conn

	writeMu sync.Mutex
	seq     atomic.Uint64

	pendingMu sync.Mutex
	pending   map[uint64]chan Response

	cbMu     sync.RWMutex
	topics   map[string][]TopicHandler
	wildcard []TopicHandler

	lastBeat     atomic.Int64
	beatLost     atomic.Bool
	stopCh       chan struct{}
	stopOnce     sync.Once
	wg           sync.WaitGroup
}

// NewClient creates a disconnected client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.HeartbeatTolerance <= 0 {
		cfg.HeartbeatTolerance = DefaultHeartbeatTolerance
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}
	return &Client{
		cfg:     cfg,
		pending: make(map[uint64]chan Response),
		topics:  make(map[string][]TopicHandler),
		stopCh:  make(chan struct{}),
	}
}

// Connect dials both channels and starts the receive loops and the
// heartbeat watchdog.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connected {
		return nil
	}

	reqConn, err := Dial(c.cfg.ReqAddress, c.cfg.DialTimeout)
	if err != nil {
		return err
	}
	subConn, err := Dial(c.cfg.SubAddress, c.cfg.DialTimeout)
	if err != nil {
		reqConn.Close()
		return err
	}
	c.reqConn, c.subConn = reqConn, subConn
	c.connected = true
	c.lastBeat.Store(time.Now().UnixNano())

	c.wg.Add(3)
	go c.readResponses()
	go c.readPackets()
	go c.runWatchdog()
	return nil
}

// Close tears both channels down and fails every in-flight call. Idempotent.
func (c *Client) Close() {
	c.stopOnce.Do(func() {
		close(c.stopCh)

		c.mu.Lock()
		connected := c.connected
		c.connected = false
		if c.reqConn != nil {
			c.reqConn.Close()
		}
		if c.subConn != nil {
			c.subConn.Close()
		}
		c.mu.Unlock()

		if connected {
			c.wg.Wait()
		}
	})
}

// Call invokes a remote method and blocks for the matching response. A
// deadline miss returns exception.ErrRPCTimeout; a failure reported by the
// server returns a *RemoteError. The two are distinct conditions: a timed
// out call may still execute remotely.
func (c *Client) Call(method string, args []any, kwargs map[string]any, timeout time.Duration) (any, error) {
	c.mu.Lock()
	conn := c.reqConn
	connected := c.connected
	c.mu.Unlock()
	if !connected {
		return nil, exception.ErrRPCNotConnected
	}
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}

	seq := c.seq.Add(1)
	waiter := make(chan Response, 1)
	c.pendingMu.Lock()
	c.pending[seq] = waiter
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, seq)
		c.pendingMu.Unlock()
	}()

	req := Request{Seq: seq, Method: method, Args: args, KWArgs: kwargs}
	c.writeMu.Lock()
	err := writeFrame(conn, req)
	c.writeMu.Unlock()
	if err != nil {
		return nil, errors.Wrap(err, "send request").With("method", method)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case resp := <-waiter:
		if !resp.Success {
			return nil, &RemoteError{Method: method, Message: resp.Error}
		}
		return resp.Value, nil
	case <-timer.C:
		return nil, errors.Wrap(exception.ErrRPCTimeout, method)
	case <-c.stopCh:
		return nil, exception.ErrRPCNotConnected
	}
}

// SubscribeTopic registers a handler for one broadcast topic.
func (c *Client) SubscribeTopic(topic string, handler TopicHandler) {
	if topic == "" || handler == nil {
		return
	}
	c.cbMu.Lock()
	defer c.cbMu.Unlock()
	c.topics[topic] = append(c.topics[topic], handler)
}

// SubscribeAllTopics registers a handler receiving every broadcast packet
// except the reserved heartbeat.
func (c *Client) SubscribeAllTopics(handler TopicHandler) {
	if handler == nil {
		return
	}
	c.cbMu.Lock()
	defer c.cbMu.Unlock()
	c.wildcard = append(c.wildcard, handler)
}

func (c *Client) readResponses() {
	defer c.wg.Done()
	for {
		var resp Response
		if err := readFrame(c.reqConn, &resp); err != nil {
			return
		}
		c.pendingMu.Lock()
		waiter, ok := c.pending[resp.Seq]
		c.pendingMu.Unlock()
		if ok {
			waiter <- resp
		}
	}
}

func (c *Client) readPackets() {
	defer c.wg.Done()
	for {
		var pkt Packet
		if err := readFrame(c.subConn, &pkt); err != nil {
			return
		}
		if pkt.Topic == HeartbeatTopic {
			c.lastBeat.Store(time.Now().UnixNano())
			c.beatLost.Store(false)
			continue
		}

		c.cbMu.RLock()
		handlers := make([]TopicHandler, 0, len(c.topics[pkt.Topic])+len(c.wildcard))
		handlers = append(handlers, c.topics[pkt.Topic]...)
		handlers = append(handlers, c.wildcard...)
		c.cbMu.RUnlock()
		for _, handler := range handlers {
			handler(pkt)
		}
	}
}

// runWatchdog reports heartbeat silence once per outage. Loss is reported
// through OnDisconnect, never raised from a call.
func (c *Client) runWatchdog() {
	defer c.wg.Done()
	period := c.cfg.HeartbeatTolerance / 4
	if period <= 0 {
		period = time.Second
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			elapsed := time.Since(time.Unix(0, c.lastBeat.Load()))
			if elapsed <= c.cfg.HeartbeatTolerance {
				continue
			}
			if c.beatLost.CompareAndSwap(false, true) && c.cfg.OnDisconnect != nil {
				c.cfg.OnDisconnect()
			}
		}
	}
}
