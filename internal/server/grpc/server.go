// Package grpc exposes the node callback service peer nodes use to deliver
// messages, report transport statuses and hand over inbound OA material.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/tradeportal/internal/logging"
	"github.com/dmitrijs2005/tradeportal/internal/oa"
	"github.com/dmitrijs2005/tradeportal/internal/server/models"
	"github.com/dmitrijs2005/tradeportal/internal/server/node"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type Documents interface {
	Get(ctx context.Context, id string) (*models.Document, error)
	Import(ctx context.Context, d *models.Document) (*models.Document, error)
	SetCanonicalObject(ctx context.Context, id, filename string) (*models.Document, error)
}

type Locators interface {
	Learn(ctx context.Context, id string, pair oa.Locator) error
}

type Files interface {
	Store(ctx context.Context, documentID string, data []byte, declared, uploader string) (*models.DocumentFile, error)
}

type GRPCServer struct {
	address    string
	reconciler node.Reconciler
	documents  Documents
	locators   Locators
	files      Files
	logger     logging.Logger
	jwtSecret  []byte
	home       string
}

func NewGRPCServer(a string, l logging.Logger, r node.Reconciler, docs Documents, locs Locators, files Files,
	secretKey, home string) *GRPCServer {
	return &GRPCServer{
		address:    a,
		logger:     l.With("module", "grpc_server"),
		reconciler: r,
		documents:  docs,
		locators:   locs,
		files:      files,
		jwtSecret:  []byte(secretKey),
		home:       home,
	}
}

// Register adds the callback and health services to srv.
func (s *GRPCServer) Register(srv *grpc.Server) {
	RegisterNodeCallbackServer(srv, s)
	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
}

func (s *GRPCServer) NewServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.accessTokenInterceptor))
	s.Register(srv)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := s.NewServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", s.address)

	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
