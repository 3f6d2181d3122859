package badger

import (
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
)

// chunkRecord is the stored form of one document chunk: the raw text, the
// metadata stamped at ingestion time and the embedding vector.
type chunkRecord struct {
	Content  string
	Metadata map[string]string
	Vector   []float32
}

var (
	metadataSer = ord.NewMapSer[string, string](ord.String, ord.String)
	vectorSer   = ord.NewSliceSer[float32](raw.Float32)
)

// chunkRecordSer serializes chunkRecord with mus-go.
type chunkRecordSer struct{}

var chunkRecordMUS = chunkRecordSer{}

func (chunkRecordSer) Marshal(r chunkRecord, bs []byte) (n int) {
	n = ord.String.Marshal(r.Content, bs)
	n += metadataSer.Marshal(r.Metadata, bs[n:])
	n += vectorSer.Marshal(r.Vector, bs[n:])
	return n
}

func (chunkRecordSer) Unmarshal(bs []byte) (r chunkRecord, n int, err error) {
	var n1 int
	r.Content, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return r, n, err
	}
	r.Metadata, n1, err = metadataSer.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return r, n, err
	}
	r.Vector, n1, err = vectorSer.Unmarshal(bs[n:])
	n += n1
	return r, n, err
}

func (chunkRecordSer) Size(r chunkRecord) (size int) {
	size = ord.String.Size(r.Content)
	size += metadataSer.Size(r.Metadata)
	size += vectorSer.Size(r.Vector)
	return size
}

func (chunkRecordSer) Skip(bs []byte) (n int, err error) {
	var n1 int
	n, err = ord.String.Skip(bs)
	if err != nil {
		return n, err
	}
	n1, err = metadataSer.Skip(bs[n:])
	n += n1
	if err != nil {
		return n, err
	}
	n1, err = vectorSer.Skip(bs[n:])
	n += n1
	return n, err
}

// marshalChunkRecord serializes a chunkRecord to bytes.
func marshalChunkRecord(r chunkRecord) []byte {
	buf := make([]byte, chunkRecordMUS.Size(r))
	chunkRecordMUS.Marshal(r, buf)
	return buf
}

// unmarshalChunkRecord deserializes a chunkRecord from bytes.
func unmarshalChunkRecord(bs []byte) (chunkRecord, error) {
	r, _, err := chunkRecordMUS.Unmarshal(bs)
	return r, err
}
