package leaves

import "github.com/abapaengine/core/internal/oware"

// binomialCache memoizes C(n,k) via Pascal's recurrence; n,k stay small (n is bounded
// by maxSeeds+NumHouses-1, well under a hundred for any tablebase this module builds).
var binomialCache = map[[2]int]int64{}

func binomial(n, k int) int64 {
	if k < 0 || k > n || n < 0 {
		return 0
	}
	if k == 0 || k == n {
		return 1
	}
	key := [2]int{n, k}
	if v, ok := binomialCache[key]; ok {
		return v
	}
	v := binomial(n-1, k-1) + binomial(n-1, k)
	binomialCache[key] = v
	return v
}

// numPositions returns the number of distinct ways to distribute s indistinguishable
// seeds across oware.NumHouses houses: the classic "stars and bars" count
// C(s+NumHouses-1, NumHouses-1).
func numPositions(s int) int64 {
	return binomial(s+oware.NumHouses-1, oware.NumHouses-1)
}

// rank assigns a dense index in [0, numPositions(sum(houses))) to a house distribution,
// a binomial-numbering perfect hash. It works by
// transforming the 12 house counts into the NumHouses-1 strictly increasing "stars and
// bars" boundary positions standard to the bijection between multisets and
// combinations, then ranking those via the combinatorial number system (colex order):
// boundary[i] = (seeds in houses[0..i]) + i, and rank = sum_i C(boundary[i], i+1).
func rank(houses [oware.NumHouses]int8) int64 {
	const k = oware.NumHouses - 1
	var idx int64
	running := 0
	for i := 0; i < k; i++ {
		running += int(houses[i])
		boundary := running + i
		idx += binomial(boundary, i+1)
	}
	return idx
}

// forEachComposition calls cb once for every distribution of s seeds across
// oware.NumHouses houses (in no particular rank order; the caller ranks each one as
// needed). Used by the offline solver to enumerate the full domain for a given seed
// count.
func forEachComposition(s int, cb func(houses [oware.NumHouses]int8)) {
	var houses [oware.NumHouses]int8
	var rec func(house, remaining int)
	rec = func(house, remaining int) {
		if house == oware.NumHouses-1 {
			houses[house] = int8(remaining)
			cb(houses)
			return
		}
		for take := 0; take <= remaining; take++ {
			houses[house] = int8(take)
			rec(house+1, remaining-take)
		}
	}
	rec(0, s)
}

// offsetsUpTo returns a slice of length maxSeeds+2 where offsetsUpTo[s] is the number of
// table entries occupied by every seed count strictly less than s, and
// offsetsUpTo[maxSeeds+1] is the total entry count (excluding the reserved index 0).
func offsetsUpTo(maxSeeds int) []int64 {
	offsets := make([]int64, maxSeeds+2)
	for s := 0; s <= maxSeeds; s++ {
		offsets[s+1] = offsets[s] + numPositions(s)
	}
	return offsets
}
