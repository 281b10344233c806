package domain

import "github.com/chatrank/chatrank/internal/event"

// Policy is the versioned weight table mapping event kinds to points. It is
// fixed at construction; buckets already written are never recomputed when
// a newer version ships.
type Policy struct {
	Version int
	Weights map[event.Kind]int64
}

// DefaultPolicy scores text at 1 and stickers at 2; all other kinds earn
// nothing but still count as activity.
func DefaultPolicy() Policy {
	return Policy{
		Version: 1,
		Weights: map[event.Kind]int64{
			event.KindText:    1,
			event.KindSticker: 2,
		},
	}
}

// Weight returns the points one event of the given kind earns.
func (p Policy) Weight(kind event.Kind) int64 {
	return p.Weights[kind]
}
