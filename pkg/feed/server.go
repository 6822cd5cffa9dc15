package feed

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"
)

// DefaultSubscriberBuffer is the per-stream frame buffer on the server.
const DefaultSubscriberBuffer = 64

// Server serves the Watch stream from a hub.
type Server struct {
	hub    *Hub
	buffer int
	log    zerolog.Logger
	grpc   *grpc.Server
}

// NewServer creates a feed server publishing frames from hub.
func NewServer(hub *Hub, logger zerolog.Logger) *Server {
	s := &Server{
		hub:    hub,
		buffer: DefaultSubscriberBuffer,
		log:    logger.With().Str("component", "feed").Logger(),
	}
	s.grpc = grpc.NewServer(
		grpc.ForceServerCodec(jsonCodec{}),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    DefaultKeepaliveTime,
			Timeout: DefaultKeepaliveTimeout,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             DefaultKeepaliveTime / 2,
			PermitWithoutStream: true,
		}),
	)
	s.grpc.RegisterService(&serviceDesc, s)
	return s
}

// Serve accepts connections on lis until ctx is done or Stop is called.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.log.Info().Str("addr", lis.Addr().String()).Msg("feed listening")
	if err := s.grpc.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// Stop ends every stream and closes the listener. Streams get a short grace
// period to flush.
func (s *Server) Stop() {
	done := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		s.grpc.Stop()
	}
}

// Watch sends the latest frame followed by every frame published afterwards
// that passes the request filter.
func (s *Server) Watch(req *WatchRequest, stream grpc.ServerStream) error {
	frames, last, ok, cancel := s.hub.Follow(s.buffer)
	defer cancel()

	s.log.Debug().Int64("every", req.Every).Int("subscribers", s.hub.Subscribers()).Msg("watch opened")
	defer s.log.Debug().Msg("watch closed")

	if ok && req.wants(last) {
		if err := stream.SendMsg(&last); err != nil {
			return err
		}
	}

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case f, ok := <-frames:
			if !ok {
				return nil
			}
			if !req.wants(f) {
				continue
			}
			if err := stream.SendMsg(&f); err != nil {
				return err
			}
		}
	}
}
