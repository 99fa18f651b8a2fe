package eigenda

import (
	"bytes"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"
)

func TestDisperseBlobRequest_Wire(t *testing.T) {
	req := &DisperseBlobRequest{
		Data: []byte{0, 1, 2, 3},
		SecurityParams: []SecurityParams{
			{QuorumID: 0, AdversaryThreshold: 25, QuorumThreshold: 50},
			{QuorumID: 1, AdversaryThreshold: 33, QuorumThreshold: 67},
		},
	}

	var got DisperseBlobRequest
	if err := got.unmarshal(req.marshal()); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !bytes.Equal(got.Data, req.Data) {
		t.Errorf("data: got %v, want %v", got.Data, req.Data)
	}
	if len(got.SecurityParams) != 2 {
		t.Fatalf("expected 2 security params, got %d", len(got.SecurityParams))
	}
	if got.SecurityParams[1] != req.SecurityParams[1] {
		t.Errorf("security params: got %+v, want %+v", got.SecurityParams[1], req.SecurityParams[1])
	}
}

func TestSecurityParams_FieldNumbers(t *testing.T) {
	p := &SecurityParams{QuorumID: 2, AdversaryThreshold: 25, QuorumThreshold: 50}

	var want []byte
	want = protowire.AppendTag(want, 1, protowire.VarintType)
	want = protowire.AppendVarint(want, 2)
	want = protowire.AppendTag(want, 2, protowire.VarintType)
	want = protowire.AppendVarint(want, 25)
	want = protowire.AppendTag(want, 3, protowire.VarintType)
	want = protowire.AppendVarint(want, 50)

	if got := p.marshal(); !bytes.Equal(got, want) {
		t.Errorf("got % x, want % x", got, want)
	}
}

func TestBlobStatusReply_NestedProof(t *testing.T) {
	reply := &BlobStatusReply{
		Status: BlobStatusConfirmed,
		Info: &BlobInfo{
			BlobHeader: []byte{0xaa},
			Proof: &BlobVerificationProof{
				BatchID:   7,
				BlobIndex: 3,
				BatchMetadata: &BatchMetadata{
					BatchHeader:             []byte{0x01},
					ConfirmationBlockNumber: 1234,
					BatchHeaderHash:         bytes.Repeat([]byte{0xbb}, 32),
				},
				QuorumIndexes: []byte{0},
			},
		},
	}

	var got BlobStatusReply
	if err := got.unmarshal(reply.marshal()); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Status != BlobStatusConfirmed {
		t.Errorf("status: got %s", got.Status)
	}
	if got.Info == nil || got.Info.Proof == nil || got.Info.Proof.BatchMetadata == nil {
		t.Fatal("nested proof not decoded")
	}
	proof := got.Info.Proof
	if proof.BatchID != 7 || proof.BlobIndex != 3 {
		t.Errorf("proof ids: got batch %d index %d", proof.BatchID, proof.BlobIndex)
	}
	if proof.BatchMetadata.ConfirmationBlockNumber != 1234 {
		t.Errorf("confirmation block: got %d", proof.BatchMetadata.ConfirmationBlockNumber)
	}
	if !bytes.Equal(proof.BatchMetadata.BatchHeaderHash, reply.Info.Proof.BatchMetadata.BatchHeaderHash) {
		t.Error("batch header hash changed")
	}
}

func TestWire_SkipsUnknownFields(t *testing.T) {
	var b []byte
	b = protowire.AppendTag(b, 9, protowire.BytesType)
	b = protowire.AppendBytes(b, []byte("account"))
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendBytes(b, []byte{0xde, 0xad})
	b = protowire.AppendTag(b, 10, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, 42)

	var got RetrieveBlobReply
	if err := got.unmarshal(b); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !bytes.Equal(got.Data, []byte{0xde, 0xad}) {
		t.Errorf("got %x", got.Data)
	}
}

func TestWire_Truncated(t *testing.T) {
	full := (&RetrieveBlobRequest{BatchHeaderHash: bytes.Repeat([]byte{1}, 32), BlobIndex: 5}).marshal()

	var got RetrieveBlobRequest
	if err := got.unmarshal(full[:10]); err == nil {
		t.Error("expected error for truncated message")
	}
}

func TestWireCodec_RejectsForeignTypes(t *testing.T) {
	c := wireCodec{}
	if c.Name() != "proto" {
		t.Errorf("unexpected codec name %q", c.Name())
	}
	if _, err := c.Marshal("not a message"); err == nil {
		t.Error("expected marshal error")
	}
	if err := c.Unmarshal(nil, new(int)); err == nil {
		t.Error("expected unmarshal error")
	}
}

func TestBlobStatus_String(t *testing.T) {
	tests := []struct {
		status BlobStatus
		want   string
	}{
		{BlobStatusProcessing, "PROCESSING"},
		{BlobStatusFinalized, "FINALIZED"},
		{BlobStatusInsufficientSignatures, "INSUFFICIENT_SIGNATURES"},
		{BlobStatus(42), "BlobStatus(42)"},
	}
	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("BlobStatus(%d).String() = %q, want %q", int32(tt.status), got, tt.want)
		}
	}
}
