package business

import (
	"math"

	"billionaire_empire/internal/market"
)

// CalculateBusinessCost prices a purchase (level 0) or the next level-up.
// Strictly increasing in level.
func CalculateBusinessCost(def Definition, currentLevel int) float64 {
	if currentLevel < 0 {
		currentLevel = 0
	}
	lvl := float64(currentLevel)
	return math.Floor(def.BaseCost * math.Pow(def.CostMultiplier, lvl) * (1 + lvl*0.1))
}

// CalculateBusinessIncome is the monthly gross income before efficiency and events.
func CalculateBusinessIncome(def Definition, level int, staffBonus, newsBonus float64) float64 {
	if level < 1 {
		return 0
	}
	if staffBonus <= 0 {
		staffBonus = 1
	}
	if newsBonus <= 0 {
		newsBonus = 1
	}
	return math.Floor(def.BaseIncome * math.Pow(def.IncomeMultiplier, float64(level-1)) * staffBonus * newsBonus)
}

// CalculateSupplyChainEfficiency returns a multiplier in [0.1, 1].
// Each missing input contributes shortage*0.2 to the loss.
func CalculateSupplyChainEfficiency(def Definition, available map[market.ResourceID]float64) float64 {
	loss := 0.0
	for res, required := range def.Inputs {
		if required <= 0 {
			continue
		}
		have := available[res]
		if have < required {
			loss += (required - have) / required * 0.2
		}
	}
	return math.Max(0.1, 1-loss)
}

// CalculateClusterBonus returns the income multiplier a cluster grants, 1 when
// the gates are not met. Capped at 2.0.
func CalculateClusterBonus(c Cluster, owned []Type, communityPlayers int) float64 {
	if communityPlayers < c.MinCommunityPlayers || len(c.Industries) == 0 {
		return 1
	}

	in := make(map[Industry]bool, len(c.Industries))
	for _, ind := range c.Industries {
		in[ind] = true
	}

	count := 0
	matched := map[Industry]bool{}
	for _, t := range owned {
		def, ok := definitions[t]
		if !ok || !in[def.Industry] {
			continue
		}
		count++
		matched[def.Industry] = true
	}
	if count < c.MinBusinesses {
		return 1
	}

	fraction := float64(len(matched)) / float64(len(c.Industries))
	return math.Min(2.0, 1+fraction*c.MaxBonus)
}

// BestClusterBonus picks the largest bonus among clusters containing the industry.
func BestClusterBonus(industry Industry, owned []Type, communityPlayers int) (float64, string) {
	best, id := 1.0, ""
	for _, c := range Clusters {
		member := false
		for _, ind := range c.Industries {
			if ind == industry {
				member = true
				break
			}
		}
		if !member {
			continue
		}
		if b := CalculateClusterBonus(c, owned, communityPlayers); b > best {
			best, id = b, c.ID
		}
	}
	return best, id
}
