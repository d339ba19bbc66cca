package rpc

import (
	"net"
	"sync"
	"time"

	"github.com/yanun0323/logs"

	"main/pkg/exception"
)

// HandlerFunc executes one registered method. It runs on the connection's
// read goroutine, so a slow handler stalls only its own caller.
type HandlerFunc func(args []any, kwargs map[string]any) (any, error)

// ServerConfig controls the two listening channels.
type ServerConfig struct {
	// ReqAddress is the request/response channel, e.g. "tcp://127.0.0.1:2014"
	// or "unix:///tmp/runtime.req.sock".
	ReqAddress string
	// PubAddress is the broadcast channel.
	PubAddress string
	// HeartbeatInterval defaults to one second.
	HeartbeatInterval time.Duration
}

// subscriberBuffer bounds per-subscriber backlog; packets past it are
// dropped rather than stalling the publisher.
const subscriberBuffer = 256

// Server answers method calls and fans broadcast packets out to every
// connected subscriber.
type Server struct {
	cfg ServerConfig

	methodMu sync.RWMutex
	methods  map[string]HandlerFunc

	mu      sync.Mutex
	started bool
	reqLn   net.Listener
	pubLn   net.Listener
	conns   map[net.Conn]struct{}
	subs    map[net.Conn]chan Packet

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewServer creates an unstarted server.
func NewServer(cfg ServerConfig) *Server {
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = DefaultHeartbeatInterval
	}
	return &Server{
		cfg:     cfg,
		methods: make(map[string]HandlerFunc),
		conns:   make(map[net.Conn]struct{}),
		subs:    make(map[net.Conn]chan Packet),
		stopCh:  make(chan struct{}),
	}
}

// Register exposes one method. Names are case-sensitive and unique.
func (s *Server) Register(name string, fn HandlerFunc) error {
	if name == "" || fn == nil {
		return exception.ErrRPCUnknownMethod
	}
	s.methodMu.Lock()
	defer s.methodMu.Unlock()
	if _, ok := s.methods[name]; ok {
		return exception.ErrRPCDuplicateMethod
	}
	s.methods[name] = fn
	return nil
}

// Start opens both listeners and begins serving. It returns once listening.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return exception.ErrRPCAlreadyStarted
	}

	reqLn, err := Listen(s.cfg.ReqAddress)
	if err != nil {
		return err
	}
	pubLn, err := Listen(s.cfg.PubAddress)
	if err != nil {
		reqLn.Close()
		return err
	}
	s.reqLn, s.pubLn = reqLn, pubLn
	s.started = true

	s.wg.Add(3)
	go s.acceptRequests()
	go s.acceptSubscribers()
	go s.runHeartbeat()

	logs.Infof("rpc server listening, req: %s, pub: %s", s.cfg.ReqAddress, s.cfg.PubAddress)
	return nil
}

// Publish fans one packet out to every subscriber. A subscriber whose
// backlog is full misses the packet; the publisher never blocks.
func (s *Server) Publish(topic string, data any) {
	pkt := Packet{Topic: topic, Data: data}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- pkt:
		default:
		}
	}
}

// Stop closes the listeners and every connection. Idempotent.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)

		s.mu.Lock()
		if s.reqLn != nil {
			s.reqLn.Close()
		}
		if s.pubLn != nil {
			s.pubLn.Close()
		}
		for conn := range s.conns {
			conn.Close()
		}
		for conn, ch := range s.subs {
			close(ch)
			conn.Close()
		}
		s.subs = make(map[net.Conn]chan Packet)
		started := s.started
		s.mu.Unlock()

		if started {
			s.wg.Wait()
		}
	})
}

func (s *Server) acceptRequests() {
	defer s.wg.Done()
	for {
		conn, err := s.reqLn.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go s.serveRequests(conn)
	}
}

func (s *Server) serveRequests(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	for {
		var req Request
		if err := readFrame(conn, &req); err != nil {
			return
		}
		if err := writeFrame(conn, s.dispatch(req)); err != nil {
			return
		}
	}
}

// dispatch runs the handler and always produces a response; an unknown
// method is a failed call, never silence.
func (s *Server) dispatch(req Request) Response {
	s.methodMu.RLock()
	fn, ok := s.methods[req.Method]
	s.methodMu.RUnlock()
	if !ok {
		return Response{Seq: req.Seq, Error: exception.ErrRPCUnknownMethod.Error() + ": " + req.Method}
	}

	value, err := fn(req.Args, req.KWArgs)
	if err != nil {
		return Response{Seq: req.Seq, Error: err.Error()}
	}
	return Response{Seq: req.Seq, Success: true, Value: value}
}

func (s *Server) acceptSubscribers() {
	defer s.wg.Done()
	for {
		conn, err := s.pubLn.Accept()
		if err != nil {
			return
		}
		ch := make(chan Packet, subscriberBuffer)
		s.mu.Lock()
		s.subs[conn] = ch
		s.mu.Unlock()

		s.wg.Add(1)
		go s.serveSubscriber(conn, ch)
	}
}

func (s *Server) serveSubscriber(conn net.Conn, ch chan Packet) {
	defer s.wg.Done()
	for pkt := range ch {
		if err := writeFrame(conn, pkt); err != nil {
			s.mu.Lock()
			if _, ok := s.subs[conn]; ok {
				delete(s.subs, conn)
				close(ch)
			}
			s.mu.Unlock()
			conn.Close()
			for range ch {
				// Drain so the publisher never sees a closed channel race.
			}
			return
		}
	}
}

func (s *Server) runHeartbeat() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.Publish(HeartbeatTopic, nil)
		}
	}
}
