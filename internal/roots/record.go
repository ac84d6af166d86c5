package roots

import (
	"encoding/binary"
	"math"

	"github.com/abapaengine/core/internal/game"
)

// RecordSize is the fixed on-disk size of one book record:
// i64 parent_hash | i64 child_hash | i32 move | f64 score | i64 count.
const RecordSize = 8 + 8 + 4 + 8 + 8

// Record is one opening-book entry. Score's sign convention is book-specific:
// BaseBook stores it from the mover's point of view; UCTBook
// stores an upper-confidence bound of the negated score. Both variants in this package
// preserve their own convention exactly rather than normalizing it away: mixing them
// silently misreads a trained book.
type Record struct {
	ParentHash game.Hash
	ChildHash  game.Hash
	Move       game.Move
	Score      float64
	Count      int64
}

// Less orders records by (ParentHash, ChildHash) ascending, the sort order the file
// format's binary search relies on.
func (r Record) Less(o Record) bool {
	if r.ParentHash != o.ParentHash {
		return r.ParentHash < o.ParentHash
	}
	return r.ChildHash < o.ChildHash
}

func (r Record) encode() [RecordSize]byte {
	var buf [RecordSize]byte
	binary.BigEndian.PutUint64(buf[0:8], uint64(r.ParentHash))
	binary.BigEndian.PutUint64(buf[8:16], uint64(r.ChildHash))
	binary.BigEndian.PutUint32(buf[16:20], uint32(int32(r.Move)))
	binary.BigEndian.PutUint64(buf[20:28], math.Float64bits(r.Score))
	binary.BigEndian.PutUint64(buf[28:36], uint64(r.Count))
	return buf
}

func decodeRecord(buf []byte) Record {
	return Record{
		ParentHash: game.Hash(binary.BigEndian.Uint64(buf[0:8])),
		ChildHash:  game.Hash(binary.BigEndian.Uint64(buf[8:16])),
		Move:       game.Move(int32(binary.BigEndian.Uint32(buf[16:20]))),
		Score:      math.Float64frombits(binary.BigEndian.Uint64(buf[20:28])),
		Count:      int64(binary.BigEndian.Uint64(buf[28:36])),
	}
}
