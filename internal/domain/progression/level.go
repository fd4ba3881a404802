package progression

import (
	"math"
	"math/big"
	"sort"
)

// levelTableBound is how far the threshold table is built. Thresholds
// whose exact value no longer fits in int64 are unreachable by any
// ledger total and are cut from the table, so the effective ceiling is
// MaxLevel(), not this constant.
const levelTableBound = 200

// xpThresholds[i] is the cumulative XP required to reach level i+1.
// xpThresholds[0] = 0 (level 1), xpThresholds[1] = 100 (level 2), then
// each step adds floor(100 * 1.5^(level-2)).
var xpThresholds = buildThresholds()

// buildThresholds evaluates the curve with exact integer arithmetic.
// 100 * 1.5^k is 100 * 3^k / 2^k, and the division by a power of two is
// an exact floor via right shift, so no float rounding leaks into the
// table. The table stops at the last threshold that fits in int64.
func buildThresholds() []int64 {
	thresholds := make([]int64, 0, levelTableBound)
	thresholds = append(thresholds, 0) // level 1

	maxTotal := big.NewInt(math.MaxInt64)
	cumulative := new(big.Int)
	pow3 := big.NewInt(1)
	three := big.NewInt(3)
	hundred := big.NewInt(100)

	for level := 2; level <= levelTableBound; level++ {
		k := uint(level - 2)
		inc := new(big.Int).Mul(hundred, pow3)
		inc.Rsh(inc, k)
		cumulative.Add(cumulative, inc)
		if cumulative.Cmp(maxTotal) > 0 {
			break
		}
		thresholds = append(thresholds, cumulative.Int64())
		pow3.Mul(pow3, three)
	}
	return thresholds
}

// MaxLevel is the highest level the curve can produce.
func MaxLevel() int {
	return len(xpThresholds)
}

// CumulativeXP returns the total XP required to reach the given level,
// or -1 when the level is outside the table.
func CumulativeXP(level int) int64 {
	if level < 1 || level > len(xpThresholds) {
		return -1
	}
	return xpThresholds[level-1]
}

// LevelFromTotalXP maps a ledger total to the largest level whose
// threshold does not exceed it. Binary search over the cached table.
func LevelFromTotalXP(totalXP int64) int {
	if totalXP < 0 {
		totalXP = 0
	}
	// First index whose threshold is strictly above the total; the
	// level before it is the answer.
	i := sort.Search(len(xpThresholds), func(i int) bool {
		return xpThresholds[i] > totalXP
	})
	if i == 0 {
		return 1
	}
	return i
}

// XPWithinLevel returns how far into the current level the total sits.
func XPWithinLevel(totalXP int64) int64 {
	if totalXP < 0 {
		totalXP = 0
	}
	return totalXP - CumulativeXP(LevelFromTotalXP(totalXP))
}

// XPToNextLevel returns the XP remaining until the next threshold, or 0
// at the top of the table.
func XPToNextLevel(totalXP int64) int64 {
	if totalXP < 0 {
		totalXP = 0
	}
	level := LevelFromTotalXP(totalXP)
	if level >= len(xpThresholds) {
		return 0
	}
	return CumulativeXP(level+1) - totalXP
}

// LevelUpResult describes a level increase caused by an XP award. It is
// produced only when the level strictly increased.
type LevelUpResult struct {
	PreviousLevel    int      `json:"previous_level"`
	NewLevel         int      `json:"new_level"`
	NewRank          string   `json:"new_rank"`
	UnlockedBenefits []string `json:"unlocked_benefits"`
}
