package badger

import (
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"

	"github.com/lexrag/lexrag/core"
)

// messageSer serializes one transcript message with mus-go.
type messageSer struct{}

func (messageSer) Marshal(m core.Message, bs []byte) (n int) {
	n = varint.Int.Marshal(int(m.Role), bs)
	n += ord.String.Marshal(m.Content, bs[n:])
	return n
}

func (messageSer) Unmarshal(bs []byte) (m core.Message, n int, err error) {
	var role, n1 int
	role, n, err = varint.Int.Unmarshal(bs)
	if err != nil {
		return m, n, err
	}
	m.Role = core.Role(role)
	m.Content, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	return m, n, err
}

func (messageSer) Size(m core.Message) (size int) {
	size = varint.Int.Size(int(m.Role))
	size += ord.String.Size(m.Content)
	return size
}

func (messageSer) Skip(bs []byte) (n int, err error) {
	var n1 int
	n, err = varint.Int.Skip(bs)
	if err != nil {
		return n, err
	}
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	return n, err
}

var transcriptMUS = ord.NewSliceSer[core.Message](messageSer{})

// marshalTranscript serializes a whole transcript to bytes.
func marshalTranscript(messages []core.Message) []byte {
	buf := make([]byte, transcriptMUS.Size(messages))
	transcriptMUS.Marshal(messages, buf)
	return buf
}

// unmarshalTranscript deserializes a transcript from bytes.
func unmarshalTranscript(bs []byte) ([]core.Message, error) {
	messages, _, err := transcriptMUS.Unmarshal(bs)
	return messages, err
}
