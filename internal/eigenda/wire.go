package eigenda

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Disperser service methods.
const (
	methodDisperseBlob  = "/disperser.Disperser/DisperseBlob"
	methodGetBlobStatus = "/disperser.Disperser/GetBlobStatus"
	methodRetrieveBlob  = "/disperser.Disperser/RetrieveBlob"
)

// BlobStatus mirrors disperser.BlobStatus.
type BlobStatus int32

const (
	BlobStatusUnknown                BlobStatus = 0
	BlobStatusProcessing             BlobStatus = 1
	BlobStatusConfirmed              BlobStatus = 2
	BlobStatusFailed                 BlobStatus = 3
	BlobStatusFinalized              BlobStatus = 4
	BlobStatusInsufficientSignatures BlobStatus = 5
	BlobStatusDispersing             BlobStatus = 6
)

func (s BlobStatus) String() string {
	switch s {
	case BlobStatusUnknown:
		return "UNKNOWN"
	case BlobStatusProcessing:
		return "PROCESSING"
	case BlobStatusConfirmed:
		return "CONFIRMED"
	case BlobStatusFailed:
		return "FAILED"
	case BlobStatusFinalized:
		return "FINALIZED"
	case BlobStatusInsufficientSignatures:
		return "INSUFFICIENT_SIGNATURES"
	case BlobStatusDispersing:
		return "DISPERSING"
	default:
		return fmt.Sprintf("BlobStatus(%d)", int32(s))
	}
}

// wireMessage is implemented by every request and reply exchanged with the disperser.
type wireMessage interface {
	marshal() []byte
	unmarshal(b []byte) error
}

// wireCodec encodes wireMessages in protobuf binary format. It is forced on every
// call instead of registered, so the global "proto" codec stays untouched.
type wireCodec struct{}

func (wireCodec) Name() string {
	return "proto"
}

func (wireCodec) Marshal(v any) ([]byte, error) {
	m, ok := v.(wireMessage)
	if !ok {
		return nil, fmt.Errorf("wire codec: cannot marshal %T", v)
	}
	return m.marshal(), nil
}

func (wireCodec) Unmarshal(data []byte, v any) error {
	m, ok := v.(wireMessage)
	if !ok {
		return fmt.Errorf("wire codec: cannot unmarshal into %T", v)
	}
	return m.unmarshal(data)
}

type SecurityParams struct {
	QuorumID           uint32
	AdversaryThreshold uint32
	QuorumThreshold    uint32
}

func (m *SecurityParams) marshal() []byte {
	var b []byte
	b = appendUint32(b, 1, m.QuorumID)
	b = appendUint32(b, 2, m.AdversaryThreshold)
	b = appendUint32(b, 3, m.QuorumThreshold)
	return b
}

func (m *SecurityParams) unmarshal(b []byte) error {
	return walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeUint32(typ, b, &m.QuorumID), nil
		case 2:
			return consumeUint32(typ, b, &m.AdversaryThreshold), nil
		case 3:
			return consumeUint32(typ, b, &m.QuorumThreshold), nil
		}
		return 0, nil
	})
}

type DisperseBlobRequest struct {
	Data           []byte
	SecurityParams []SecurityParams
}

func (m *DisperseBlobRequest) marshal() []byte {
	var b []byte
	b = appendBytes(b, 1, m.Data)
	for i := range m.SecurityParams {
		b = appendMessage(b, 2, &m.SecurityParams[i])
	}
	return b
}

func (m *DisperseBlobRequest) unmarshal(b []byte) error {
	return walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeBytes(typ, b, &m.Data), nil
		case 2:
			var p SecurityParams
			n, err := consumeMessage(typ, b, &p)
			if n > 0 && err == nil {
				m.SecurityParams = append(m.SecurityParams, p)
			}
			return n, err
		}
		return 0, nil
	})
}

type DisperseBlobReply struct {
	Result    BlobStatus
	RequestID []byte
}

func (m *DisperseBlobReply) marshal() []byte {
	var b []byte
	b = appendUint32(b, 1, uint32(m.Result))
	b = appendBytes(b, 2, m.RequestID)
	return b
}

func (m *DisperseBlobReply) unmarshal(b []byte) error {
	return walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeStatus(typ, b, &m.Result), nil
		case 2:
			return consumeBytes(typ, b, &m.RequestID), nil
		}
		return 0, nil
	})
}

type BlobStatusRequest struct {
	RequestID []byte
}

func (m *BlobStatusRequest) marshal() []byte {
	return appendBytes(nil, 1, m.RequestID)
}

func (m *BlobStatusRequest) unmarshal(b []byte) error {
	return walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 {
			return consumeBytes(typ, b, &m.RequestID), nil
		}
		return 0, nil
	})
}

type BlobStatusReply struct {
	Status BlobStatus
	Info   *BlobInfo
}

func (m *BlobStatusReply) marshal() []byte {
	var b []byte
	b = appendUint32(b, 1, uint32(m.Status))
	if m.Info != nil {
		b = appendMessage(b, 2, m.Info)
	}
	return b
}

func (m *BlobStatusReply) unmarshal(b []byte) error {
	return walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeStatus(typ, b, &m.Status), nil
		case 2:
			m.Info = &BlobInfo{}
			return consumeMessage(typ, b, m.Info)
		}
		return 0, nil
	})
}

// BlobInfo keeps the blob header opaque; only the verification proof is decoded.
type BlobInfo struct {
	BlobHeader []byte
	Proof      *BlobVerificationProof
}

func (m *BlobInfo) marshal() []byte {
	var b []byte
	if len(m.BlobHeader) > 0 {
		b = appendBytes(b, 1, m.BlobHeader)
	}
	if m.Proof != nil {
		b = appendMessage(b, 2, m.Proof)
	}
	return b
}

func (m *BlobInfo) unmarshal(b []byte) error {
	return walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeBytes(typ, b, &m.BlobHeader), nil
		case 2:
			m.Proof = &BlobVerificationProof{}
			return consumeMessage(typ, b, m.Proof)
		}
		return 0, nil
	})
}

type BlobVerificationProof struct {
	BatchID        uint32
	BlobIndex      uint32
	BatchMetadata  *BatchMetadata
	InclusionProof []byte
	QuorumIndexes  []byte
}

func (m *BlobVerificationProof) marshal() []byte {
	var b []byte
	b = appendUint32(b, 1, m.BatchID)
	b = appendUint32(b, 2, m.BlobIndex)
	if m.BatchMetadata != nil {
		b = appendMessage(b, 3, m.BatchMetadata)
	}
	b = appendBytes(b, 4, m.InclusionProof)
	b = appendBytes(b, 5, m.QuorumIndexes)
	return b
}

func (m *BlobVerificationProof) unmarshal(b []byte) error {
	return walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeUint32(typ, b, &m.BatchID), nil
		case 2:
			return consumeUint32(typ, b, &m.BlobIndex), nil
		case 3:
			m.BatchMetadata = &BatchMetadata{}
			return consumeMessage(typ, b, m.BatchMetadata)
		case 4:
			return consumeBytes(typ, b, &m.InclusionProof), nil
		case 5:
			return consumeBytes(typ, b, &m.QuorumIndexes), nil
		}
		return 0, nil
	})
}

// BatchMetadata keeps the batch header opaque; the harness only needs its hash.
type BatchMetadata struct {
	BatchHeader             []byte
	SignatoryRecordHash     []byte
	Fee                     []byte
	ConfirmationBlockNumber uint32
	BatchHeaderHash         []byte
}

func (m *BatchMetadata) marshal() []byte {
	var b []byte
	b = appendBytes(b, 1, m.BatchHeader)
	b = appendBytes(b, 2, m.SignatoryRecordHash)
	b = appendBytes(b, 3, m.Fee)
	b = appendUint32(b, 4, m.ConfirmationBlockNumber)
	b = appendBytes(b, 5, m.BatchHeaderHash)
	return b
}

func (m *BatchMetadata) unmarshal(b []byte) error {
	return walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeBytes(typ, b, &m.BatchHeader), nil
		case 2:
			return consumeBytes(typ, b, &m.SignatoryRecordHash), nil
		case 3:
			return consumeBytes(typ, b, &m.Fee), nil
		case 4:
			return consumeUint32(typ, b, &m.ConfirmationBlockNumber), nil
		case 5:
			return consumeBytes(typ, b, &m.BatchHeaderHash), nil
		}
		return 0, nil
	})
}

type RetrieveBlobRequest struct {
	BatchHeaderHash []byte
	BlobIndex       uint32
}

func (m *RetrieveBlobRequest) marshal() []byte {
	var b []byte
	b = appendBytes(b, 1, m.BatchHeaderHash)
	b = appendUint32(b, 2, m.BlobIndex)
	return b
}

func (m *RetrieveBlobRequest) unmarshal(b []byte) error {
	return walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeBytes(typ, b, &m.BatchHeaderHash), nil
		case 2:
			return consumeUint32(typ, b, &m.BlobIndex), nil
		}
		return 0, nil
	})
}

type RetrieveBlobReply struct {
	Data []byte
}

func (m *RetrieveBlobReply) marshal() []byte {
	return appendBytes(nil, 1, m.Data)
}

func (m *RetrieveBlobReply) unmarshal(b []byte) error {
	return walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 {
			return consumeBytes(typ, b, &m.Data), nil
		}
		return 0, nil
	})
}

// Proto3 omits zero scalars and empty bytes.

func appendUint32(b []byte, num protowire.Number, v uint32) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(v))
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendMessage(b []byte, num protowire.Number, m wireMessage) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, m.marshal())
}

// walkFields calls visit for every field in b. visit returns the number of bytes
// it consumed after the tag, or 0 to have the field skipped.
func walkFields(b []byte, visit func(num protowire.Number, typ protowire.Type, b []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		m, err := visit(num, typ, b)
		if err != nil {
			return fmt.Errorf("field %d: %w", num, err)
		}
		if m == 0 {
			m = protowire.ConsumeFieldValue(num, typ, b)
		}
		if m < 0 {
			return fmt.Errorf("field %d: %w", num, protowire.ParseError(m))
		}
		b = b[m:]
	}
	return nil
}

func consumeUint32(typ protowire.Type, b []byte, dst *uint32) int {
	if typ != protowire.VarintType {
		return 0
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return n
	}
	*dst = uint32(v)
	return n
}

func consumeStatus(typ protowire.Type, b []byte, dst *BlobStatus) int {
	var v uint32
	n := consumeUint32(typ, b, &v)
	if n > 0 {
		*dst = BlobStatus(v)
	}
	return n
}

func consumeBytes(typ protowire.Type, b []byte, dst *[]byte) int {
	if typ != protowire.BytesType {
		return 0
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return n
	}
	*dst = append([]byte(nil), v...)
	return n
}

func consumeMessage(typ protowire.Type, b []byte, m wireMessage) (int, error) {
	if typ != protowire.BytesType {
		return 0, nil
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return n, nil
	}
	return n, m.unmarshal(v)
}
