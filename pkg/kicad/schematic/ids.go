package schematic

import (
	"strconv"

	"github.com/google/uuid"
)

// IDSource hands out UUIDs for elements created in a Document.
// Implementations are not safe for concurrent use.
type IDSource interface {
	NewID() UUID
}

type randomIDs struct{}

// RandomIDs returns random (version 4) UUIDs, like KiCad itself.
func RandomIDs() IDSource {
	return randomIDs{}
}

func (randomIDs) NewID() UUID {
	return UUID(uuid.NewString())
}

type sequentialIDs struct {
	space uuid.UUID
	next  uint64
}

// SequentialIDs returns name-based (version 5) UUIDs derived from namespace
// and a counter, so the same run over the same templates writes the same file.
func SequentialIDs(namespace string) IDSource {
	return &sequentialIDs{space: uuid.NewSHA1(uuid.NameSpaceURL, []byte(namespace))}
}

func (s *sequentialIDs) NewID() UUID {
	s.next++
	return UUID(uuid.NewSHA1(s.space, []byte(strconv.FormatUint(s.next, 10))).String())
}
