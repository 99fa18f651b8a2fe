package eigenda

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/gateway-fm/dabench/internal/config"
)

// maxMessageSize leaves room for a MaxBlockSize payload after blob encoding.
const maxMessageSize = 64 * 1024 * 1024

var (
	ErrBlobFailed   = errors.New("blob dispersal failed")
	ErrMissingProof = errors.New("confirmed blob carries no verification proof")
)

// GRPCClient talks to an EigenDA disperser over gRPC.
type GRPCClient struct {
	cfg     config.EigenDAConfig
	conn    *grpc.ClientConn
	metrics *clientMetrics
	logger  *slog.Logger
}

var _ Client = (*GRPCClient)(nil)

// NewGRPCClient creates a client for cfg.DisperserRPC. The connection is
// established lazily on the first call. opts are appended after the defaults.
func NewGRPCClient(cfg config.EigenDAConfig, reg prometheus.Registerer, logger *slog.Logger, opts ...grpc.DialOption) (*GRPCClient, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var creds credentials.TransportCredentials
	if cfg.Insecure {
		creds = insecure.NewCredentials()
	} else {
		creds = credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(creds),
		grpc.WithDefaultCallOptions(
			grpc.ForceCodec(wireCodec{}),
			grpc.MaxCallRecvMsgSize(maxMessageSize),
			grpc.MaxCallSendMsgSize(maxMessageSize),
		),
	}
	dialOpts = append(dialOpts, opts...)

	conn, err := grpc.NewClient(cfg.DisperserRPC, dialOpts...)
	if err != nil {
		return nil, &TransportError{Op: "connect", Err: fmt.Errorf("%s: %w", cfg.DisperserRPC, err)}
	}

	return &GRPCClient{
		cfg:     cfg,
		conn:    conn,
		metrics: newClientMetrics(reg),
		logger:  logger.With("component", "eigenda", "disperser", cfg.DisperserRPC),
	}, nil
}

// DisperseBlob submits data without waiting for confirmation.
func (c *GRPCClient) DisperseBlob(ctx context.Context, data []byte) (RequestID, error) {
	req := &DisperseBlobRequest{
		Data: EncodeBlob(data),
		SecurityParams: []SecurityParams{{
			QuorumID:           c.cfg.QuorumID,
			AdversaryThreshold: c.cfg.AdversaryThreshold,
			QuorumThreshold:    c.cfg.QuorumThreshold,
		}},
	}

	var reply DisperseBlobReply
	if err := c.invoke(ctx, methodDisperseBlob, req, &reply); err != nil {
		return nil, &TransportError{Op: "disperse blob", Err: err}
	}

	switch reply.Result {
	case BlobStatusFailed, BlobStatusInsufficientSignatures:
		return nil, &TransportError{Op: "disperse blob", Err: fmt.Errorf("%w: status %s", ErrBlobFailed, reply.Result)}
	}
	if len(reply.RequestID) == 0 {
		return nil, &TransportError{Op: "disperse blob", Err: errors.New("disperser returned an empty request id")}
	}

	id := RequestID(reply.RequestID)
	c.logger.Debug("blob dispersed",
		slog.String("request_id", id.String()),
		slog.String("status", reply.Result.String()),
		slog.Int("bytes", len(data)),
	)
	return id, nil
}

// StoreBlob disperses data and polls its status until it is confirmed, fails or
// StatusQueryTimeout elapses.
func (c *GRPCClient) StoreBlob(ctx context.Context, data []byte) (*AvailabilityProof, error) {
	id, err := c.DisperseBlob(ctx, data)
	if err != nil {
		return nil, err
	}
	return c.awaitConfirmation(ctx, id)
}

func (c *GRPCClient) awaitConfirmation(ctx context.Context, id RequestID) (*AvailabilityProof, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.StatusQueryTimeout)
	defer cancel()

	ticker := time.NewTicker(c.cfg.StatusQueryRetryInterval)
	defer ticker.Stop()

	expired := func() error {
		return &TransportError{
			Op:  "await confirmation",
			Err: fmt.Errorf("blob %s not confirmed within %s: %w", id, c.cfg.StatusQueryTimeout, ctx.Err()),
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil, expired()
		case <-ticker.C:
		}

		var reply BlobStatusReply
		if err := c.invoke(ctx, methodGetBlobStatus, &BlobStatusRequest{RequestID: id}, &reply); err != nil {
			if ctx.Err() != nil {
				return nil, expired()
			}
			return nil, &TransportError{Op: "get blob status", Err: err}
		}
		c.metrics.statusPolls.WithLabelValues(reply.Status.String()).Inc()

		switch reply.Status {
		case BlobStatusConfirmed, BlobStatusFinalized:
			proof, err := proofFromInfo(id, reply.Info)
			if err != nil {
				return nil, &TransportError{Op: "get blob status", Err: err}
			}
			c.logger.Debug("blob confirmed",
				slog.String("request_id", id.String()),
				slog.String("proof", proof.String()),
			)
			return proof, nil
		case BlobStatusFailed, BlobStatusInsufficientSignatures:
			return nil, &TransportError{
				Op:  "await confirmation",
				Err: fmt.Errorf("%w: blob %s status %s", ErrBlobFailed, id, reply.Status),
			}
		default:
			c.logger.Debug("blob not yet confirmed",
				slog.String("request_id", id.String()),
				slog.String("status", reply.Status.String()),
			)
		}
	}
}

func proofFromInfo(id RequestID, info *BlobInfo) (*AvailabilityProof, error) {
	if info == nil || info.Proof == nil || info.Proof.BatchMetadata == nil {
		return nil, ErrMissingProof
	}
	p := info.Proof
	if len(p.BatchMetadata.BatchHeaderHash) == 0 {
		return nil, fmt.Errorf("%w: empty batch header hash", ErrMissingProof)
	}
	return &AvailabilityProof{
		RequestID:               id,
		BatchHeaderHash:         p.BatchMetadata.BatchHeaderHash,
		BlobIndex:               p.BlobIndex,
		BatchID:                 p.BatchID,
		ConfirmationBlockNumber: p.BatchMetadata.ConfirmationBlockNumber,
		QuorumIndexes:           p.QuorumIndexes,
	}, nil
}

// RetrieveBlob fetches and decodes the blob identified by proof.
func (c *GRPCClient) RetrieveBlob(ctx context.Context, proof *AvailabilityProof) ([]byte, error) {
	if proof == nil {
		return nil, &TransportError{Op: "retrieve blob", Err: ErrMissingProof}
	}

	req := &RetrieveBlobRequest{
		BatchHeaderHash: proof.BatchHeaderHash,
		BlobIndex:       proof.BlobIndex,
	}
	var reply RetrieveBlobReply
	if err := c.invoke(ctx, methodRetrieveBlob, req, &reply); err != nil {
		return nil, &TransportError{Op: "retrieve blob", Err: err}
	}

	data, err := DecodeBlob(reply.Data)
	if err != nil {
		return nil, &TransportError{Op: "decode blob", Err: err}
	}
	return data, nil
}

// Close releases the underlying connection.
func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

func (c *GRPCClient) invoke(ctx context.Context, method string, req, reply wireMessage) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	start := time.Now()
	err := c.conn.Invoke(ctx, method, req, reply)
	c.metrics.observe(method, err, time.Since(start))
	return err
}
