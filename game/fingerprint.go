package game

import (
	"encoding/binary"

	"github.com/zeebo/xxh3"
)

// Fingerprint hashes everything that influences future play: live snake
// bodies and health, food, hazards and board geometry. The turn counter is
// left out so transpositions reached at different depths still collide.
//
// Only meaningful within a single decision; layouts change between ticks.
func (s *GameState) Fingerprint() uint64 {
	n := 16 + 8*(len(s.Food)+len(s.Hazards))
	for i := range s.Snakes {
		n += len(s.Snakes[i].Id) + 8 + 8*len(s.Snakes[i].Body)
	}
	buf := make([]byte, 0, n)

	buf = binary.LittleEndian.AppendUint32(buf, uint32(s.Width))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(s.Height))
	if s.Wrapped {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}

	for i := range s.Snakes {
		sn := &s.Snakes[i]
		if !sn.Alive() {
			continue
		}
		buf = append(buf, sn.Id...)
		buf = append(buf, 0)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(sn.Health))
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(sn.Body)))
		for _, p := range sn.Body {
			buf = appendPoint(buf, p)
		}
	}

	buf = append(buf, 'F')
	for _, p := range s.Food {
		buf = appendPoint(buf, p)
	}
	buf = append(buf, 'H')
	for _, p := range s.Hazards {
		buf = appendPoint(buf, p)
	}

	return xxh3.Hash(buf)
}

func appendPoint(buf []byte, p Point) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, uint32(p.X))
	return binary.LittleEndian.AppendUint32(buf, uint32(p.Y))
}
