// Package eigenda implements a client for the EigenDA disperser gRPC service.
package eigenda

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Client is the subset of the EigenDA disperser API the harness exercises.
type Client interface {
	// DisperseBlob submits data and returns as soon as the disperser accepts it.
	DisperseBlob(ctx context.Context, data []byte) (RequestID, error)

	// StoreBlob submits data and waits until the blob is confirmed on chain.
	StoreBlob(ctx context.Context, data []byte) (*AvailabilityProof, error)

	// RetrieveBlob fetches the original data for a confirmed blob.
	RetrieveBlob(ctx context.Context, proof *AvailabilityProof) ([]byte, error)

	Close() error
}

// RequestID identifies a dispersal request on the disperser.
type RequestID []byte

func (id RequestID) String() string {
	return hexutil.Encode(id)
}

// AvailabilityProof locates a confirmed blob and is what RetrieveBlob needs to
// fetch it again.
type AvailabilityProof struct {
	RequestID               RequestID
	BatchHeaderHash         []byte
	BlobIndex               uint32
	BatchID                 uint32
	ConfirmationBlockNumber uint32
	QuorumIndexes           []byte
}

func (p *AvailabilityProof) String() string {
	return fmt.Sprintf("batch=%s index=%d block=%d",
		hexutil.Encode(p.BatchHeaderHash), p.BlobIndex, p.ConfirmationBlockNumber)
}

// TransportError wraps any failure talking to the disperser.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("eigenda %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
