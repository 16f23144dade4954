package delegate

import (
	"fmt"
	"sort"

	"github.com/nextlevelbuilder/openclaw/internal/agentcli"
)

// Capability tiers, strongest first. Order within a tier is preference.
var ModelTiers = map[string][]string{
	"xhigh": {
		"opus-4.6-thinking",
		"gpt-5.3-codex-xhigh",
		"gpt-5.3-codex-xhigh-fast",
		"gpt-5.2-codex-xhigh",
		"gpt-5.1-codex-max-high",
		"gpt-5.1-codex-max",
		"opus-4.5-thinking",
	},
	"high": {
		"opus-4.6",
		"gpt-5.3-codex-high",
		"gpt-5.3-codex-high-fast",
		"gpt-5.2-codex-high",
		"gpt-5.2-high",
		"gpt-5.1-high",
		"opus-4.5",
	},
	"mid": {
		"sonnet-4.5-thinking",
		"gpt-5.3-codex",
		"gpt-5.2-codex",
		"gpt-5.2",
		"sonnet-4.5",
	},
	"low": {
		"gemini-3-pro",
		"gpt-5.3-codex-low",
		"gpt-5.2-codex-low",
		"grok",
	},
	"fast": {
		"gemini-3-flash",
		"gpt-5.3-codex-fast",
		"gpt-5.3-codex-low-fast",
		"gpt-5.2-codex-fast",
		"gpt-5.2-codex-low-fast",
	},
}

// TierRank orders tiers by capability, higher is stronger.
var TierRank = map[string]int{"xhigh": 5, "high": 4, "mid": 3, "low": 2, "fast": 1}

// tierNames is the canonical iteration order (strongest first), used to break
// rank-distance ties deterministically.
var tierNames = []string{"xhigh", "high", "mid", "low", "fast"}

// modelTier reverse-maps a model id to its tier ("" when unknown).
func modelTier(id string) string {
	for tier, models := range ModelTiers {
		for _, m := range models {
			if m == id {
				return tier
			}
		}
	}
	return ""
}

// ModelChoice is a selected model with the reasoning trail.
type ModelChoice struct {
	ModelID         string   `json:"model_id"`
	ModelName       string   `json:"model_name"`
	Tier            string   `json:"tier"`
	Reasons         []string `json:"reasons"`
	AvailableModels []string `json:"available_models"`
}

// SelectModel picks the best available model for the assessed complexity.
// The target tier is searched first, then adjacent tiers by rank distance;
// if no tiered model is available any non-"auto" model is used; the last
// resort is "auto". excludeModel is skipped everywhere (typically the model
// the caller is already running on).
func SelectModel(complexity Assessment, available []agentcli.Model, excludeModel, preferredTier string) ModelChoice {
	availableIDs := make(map[string]bool, len(available))
	for _, m := range available {
		availableIDs[m.ID] = true
	}
	targetTier := complexity.Tier
	if preferredTier != "" {
		targetTier = preferredTier
	}
	targetRank, ok := TierRank[targetTier]
	if !ok {
		targetRank = 3
	}

	order := make([]string, len(tierNames))
	copy(order, tierNames)
	sort.SliceStable(order, func(i, j int) bool {
		di := TierRank[order[i]] - targetRank
		if di < 0 {
			di = -di
		}
		dj := TierRank[order[j]] - targetRank
		if dj < 0 {
			dj = -dj
		}
		return di < dj
	})

	reasons := append([]string{}, complexity.Reasons...)
	chosenID := ""
	chosenTier := targetTier

	for _, tier := range order {
		for _, id := range ModelTiers[tier] {
			if availableIDs[id] && id != excludeModel {
				chosenID = id
				chosenTier = tier
				if tier != targetTier {
					reasons = append(reasons,
						fmt.Sprintf("Preferred tier '%s' not available; using '%s' tier", targetTier, tier))
				}
				break
			}
		}
		if chosenID != "" {
			break
		}
	}

	if chosenID == "" {
		for _, m := range available {
			if m.ID != excludeModel && m.ID != "auto" {
				chosenID = m.ID
				chosenTier = modelTier(m.ID)
				if chosenTier == "" {
					chosenTier = "mid"
				}
				reasons = append(reasons,
					fmt.Sprintf("Fallback: selected '%s' as no tier-matched model was available", chosenID))
				break
			}
		}
	}
	if chosenID == "" {
		chosenID = "auto"
		chosenTier = "mid"
		reasons = append(reasons, "No specific model available; using 'auto'")
	}

	name := chosenID
	for _, m := range available {
		if m.ID == chosenID && m.Name != "" {
			name = m.Name
			break
		}
	}
	reasons = append(reasons, fmt.Sprintf("Selected: %s (%s)", name, chosenID))

	ids := make([]string, 0, len(available))
	for _, m := range available {
		ids = append(ids, m.ID)
	}
	return ModelChoice{
		ModelID:         chosenID,
		ModelName:       name,
		Tier:            chosenTier,
		Reasons:         reasons,
		AvailableModels: ids,
	}
}
