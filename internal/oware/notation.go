package oware

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/abapaengine/core/internal/game"
)

// boardView implements internal/game.Board over a frozen Oware Board snapshot.
//
// Coordinate grammar follows the standard Oware notation used in print and online
// play: South's houses are lowercase 'a'..'f' (house 0..5), North's are uppercase
// 'A'..'F' (house 6..11).
type boardView struct {
	b *Board
}

var _ game.Board = (*boardView)(nil)

func houseLetter(h int) byte {
	if houseOwner(h) == South {
		return 'a' + byte(h)
	}
	return 'A' + byte(h-HousesPerSide)
}

func letterToHouse(r byte) (int, error) {
	switch {
	case r >= 'a' && r <= 'f':
		return int(r - 'a'), nil
	case r >= 'A' && r <= 'F':
		return HousesPerSide + int(r-'A'), nil
	default:
		return 0, errors.Errorf("oware: invalid house letter %q", r)
	}
}

// ToDiagram renders the board as two rows (North reversed so it reads left-to-right
// facing South, the way printed Oware boards are conventionally drawn) with capture
// totals.
func (v *boardView) ToDiagram() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "   ")
	for h := NumHouses - 1; h >= HousesPerSide; h-- {
		fmt.Fprintf(&sb, "%2d ", v.b.Houses[h])
	}
	fmt.Fprintf(&sb, "\n%3d", v.b.Captured[North])
	fmt.Fprintf(&sb, "\n   ")
	for h := 0; h < HousesPerSide; h++ {
		fmt.Fprintf(&sb, "%2d ", v.b.Houses[h])
	}
	fmt.Fprintf(&sb, "\n%3d  (to move: %s)", v.b.Captured[South], v.b.ToMove)
	return sb.String()
}

func (v *boardView) ToCoordinates(m game.Move) string {
	h := int(m)
	if h < 0 || h >= NumHouses {
		return "-"
	}
	return string(houseLetter(h))
}

func (v *boardView) ToMove(coord string) (game.Move, error) {
	coord = strings.TrimSpace(coord)
	if len(coord) != 1 {
		return game.NullMove, errors.Errorf("oware: malformed coordinate %q, expected a single house letter", coord)
	}
	h, err := letterToHouse(coord[0])
	if err != nil {
		return game.NullMove, err
	}
	return game.Move(int32(h)), nil
}

func (v *boardView) ToNotation(moves []game.Move) string {
	parts := make([]string, len(moves))
	for i, m := range moves {
		parts[i] = v.ToCoordinates(m)
	}
	return strings.Join(parts, " ")
}

func (v *boardView) ToMoves(notation string) ([]game.Move, error) {
	notation = strings.TrimSpace(notation)
	if notation == "" {
		return nil, nil
	}
	fields := strings.Fields(notation)
	out := make([]game.Move, len(fields))
	for i, f := range fields {
		m, err := v.ToMove(f)
		if err != nil {
			return nil, errors.Wrapf(err, "oware: parsing move %d of notation %q", i, notation)
		}
		out[i] = m
	}
	return out, nil
}
