// Package feed listens for newline-delimited JSON samples over TCP and
// feeds them to the batcher. It is the streaming counterpart of the
// HTTP batch surface: collectors that emit one sample per line can
// point straight at it.
package feed

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"

	"go.uber.org/zap"

	"github.com/tinytelemetry/metricbridge/internal/model"
)

const (
	// DefaultSampleChannelSize is the default buffer size for the incoming sample channel.
	DefaultSampleChannelSize = 100_000

	// DefaultMaxLineSize is the default maximum size (in bytes) of a single sample line.
	DefaultMaxLineSize = 1024 * 1024 // 1MB
)

// ServerConfig holds tunable parameters for the TCP feed.
type ServerConfig struct {
	SampleChannelSize int
	MaxLineSize       int
}

// Server listens for newline-delimited JSON sample payloads over TCP.
type Server struct {
	listener    net.Listener
	addr        string
	sampleChan  chan model.Sample
	maxLineSize int
	logger      *zap.Logger
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	stopOnce    sync.Once
}

// NewServer creates a new TCP feed. Default addr is "127.0.0.1:4005".
func NewServer(addr string, logger *zap.Logger, conf ...ServerConfig) *Server {
	if addr == "" {
		addr = "127.0.0.1:4005"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	channelSize := DefaultSampleChannelSize
	maxLineSize := DefaultMaxLineSize
	if len(conf) > 0 {
		if conf[0].SampleChannelSize > 0 {
			channelSize = conf[0].SampleChannelSize
		}
		if conf[0].MaxLineSize > 0 {
			maxLineSize = conf[0].MaxLineSize
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:        addr,
		sampleChan:  make(chan model.Sample, channelSize),
		maxLineSize: maxLineSize,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start begins accepting TCP connections.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = listener

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
					continue
				}
			}
			s.wg.Add(1)
			go s.handleConnection(conn)
		}
	}()

	return nil
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	buf := make([]byte, s.maxLineSize)
	scanner.Buffer(buf, s.maxLineSize)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var sample model.Sample
		if err := json.Unmarshal(line, &sample); err != nil {
			s.logger.Warn("feed: dropping undecodable sample line",
				zap.String("remote", conn.RemoteAddr().String()), zap.Error(err))
			continue
		}
		select {
		case s.sampleChan <- sample:
		case <-s.ctx.Done():
			return
		}
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			s.logger.Warn("feed: dropped connection, line exceeded max size",
				zap.String("remote", conn.RemoteAddr().String()), zap.Int("max_bytes", s.maxLineSize))
			return
		}
		s.logger.Warn("feed: scanner error",
			zap.String("remote", conn.RemoteAddr().String()), zap.Error(err))
	}
}

// Stop gracefully shuts down the TCP feed. Safe to call more than once.
func (s *Server) Stop() error {
	s.stopOnce.Do(func() {
		s.cancel()
		if s.listener != nil {
			s.listener.Close()
		}
		s.wg.Wait()
		close(s.sampleChan)
	})
	return nil
}

// Samples returns the channel of received samples.
func (s *Server) Samples() <-chan model.Sample {
	return s.sampleChan
}

// Addr returns the active listen address.
// Before Start, it returns the configured address.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}
