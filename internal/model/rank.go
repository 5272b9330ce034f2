package model

// Rank is an in-game competitive rank
type Rank string

const (
	RankUnranked                    Rank = "Unranked"
	RankSilver1                     Rank = "Silver 1"
	RankSilver2                     Rank = "Silver 2"
	RankSilver3                     Rank = "Silver 3"
	RankSilver4                     Rank = "Silver 4"
	RankSilverElite                 Rank = "Silver Elite"
	RankSilverEliteMaster           Rank = "Silver Elite Master"
	RankGoldNova1                   Rank = "Gold Nova 1"
	RankGoldNova2                   Rank = "Gold Nova 2"
	RankGoldNova3                   Rank = "Gold Nova 3"
	RankGoldNovaMaster              Rank = "Gold Nova Master"
	RankMasterGuardian1             Rank = "Master Guardian 1"
	RankMasterGuardian2             Rank = "Master Guardian 2"
	RankMasterGuardianElite         Rank = "Master Guardian Elite"
	RankDistinguishedMasterGuardian Rank = "Distinguished Master Guardian"
	RankLegendaryEagle              Rank = "Legendary Eagle"
	RankLegendaryEagleMaster        Rank = "Legendary Eagle Master"
	RankSupremeMasterFirstClass     Rank = "Supreme Master First Class"
	RankGlobalElite                 Rank = "Global Elite"
)

const (
	// GateRank unlocks trading and ends phase 2
	GateRank = RankMasterGuardian1
	// TargetRank ends phase 3
	TargetRank = RankGlobalElite
)

// rankOrder lists ranks from lowest to highest
var rankOrder = []Rank{
	RankUnranked,
	RankSilver1,
	RankSilver2,
	RankSilver3,
	RankSilver4,
	RankSilverElite,
	RankSilverEliteMaster,
	RankGoldNova1,
	RankGoldNova2,
	RankGoldNova3,
	RankGoldNovaMaster,
	RankMasterGuardian1,
	RankMasterGuardian2,
	RankMasterGuardianElite,
	RankDistinguishedMasterGuardian,
	RankLegendaryEagle,
	RankLegendaryEagleMaster,
	RankSupremeMasterFirstClass,
	RankGlobalElite,
}

var rankIndex = func() map[Rank]int {
	m := make(map[Rank]int, len(rankOrder))
	for i, r := range rankOrder {
		m[r] = i
	}
	return m
}()

// ParseRank converts the remote rank string, mapping an empty value to Unranked
func ParseRank(s string) Rank {
	if s == "" {
		return RankUnranked
	}
	return Rank(s)
}

// Known reports whether r is part of the rank ordering
func (r Rank) Known() bool {
	_, ok := rankIndex[r]
	return ok
}

// Index returns the position of r in the rank ordering.
// Unrecognized ranks sit at the bottom so gates stay closed on unexpected input.
func (r Rank) Index() int {
	if i, ok := rankIndex[r]; ok {
		return i
	}
	return 0
}

// AtLeast reports whether r is ranked at or above other
func (r Rank) AtLeast(other Rank) bool {
	return r.Index() >= other.Index()
}

// TradingUnlocked derives the progression gate for a rank
func TradingUnlocked(r Rank) bool {
	return r.AtLeast(GateRank)
}

// Ranks returns a copy of the rank ordering, lowest first
func Ranks() []Rank {
	out := make([]Rank, len(rankOrder))
	copy(out, rankOrder)
	return out
}
