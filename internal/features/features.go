// Package features описывает каталог тарифицируемых функций: стоимость в кредитах,
// дневные лимиты бесплатного уровня и способ учёта для каждой функции.
package features

import (
	"sort"

	"github.com/shortsos/shortsos/internal/models"
)

// Strategy способ учёта использования функции.
type Strategy string

const (
	// StrategyCredits списывает кредиты с баланса.
	StrategyCredits Strategy = "credits"
	// StrategyDaily ограничивает число вызовов в сутки (UTC).
	StrategyDaily Strategy = "daily"
	// StrategyTier пропускает только аккаунты с достаточным уровнем.
	StrategyTier Strategy = "tier"
)

// Feature запись каталога. Нулевые Cost или DailyLimit означают,
// что функция не участвует в соответствующем виде учёта.
type Feature struct {
	Name         string
	Strategy     Strategy
	Cost         int
	DailyLimit   int
	RequiredTier models.Tier
}

var catalog = map[string]Feature{
	"prompt-studio":    {Name: "prompt-studio", Strategy: StrategyCredits, Cost: 5, DailyLimit: 5, RequiredTier: models.TierFree},
	"hook-caption":     {Name: "hook-caption", Strategy: StrategyCredits, Cost: 3, DailyLimit: 10, RequiredTier: models.TierFree},
	"post-processing":  {Name: "post-processing", Strategy: StrategyCredits, Cost: 8, DailyLimit: 3, RequiredTier: models.TierFree},
	"creator-audit":    {Name: "creator-audit", Strategy: StrategyCredits, Cost: 15, DailyLimit: 1, RequiredTier: models.TierFree},
	"planner":          {Name: "planner", Strategy: StrategyCredits, Cost: 2, DailyLimit: 10, RequiredTier: models.TierFree},
	"content-ideas":    {Name: "content-ideas", Strategy: StrategyCredits, Cost: 2, RequiredTier: models.TierFree},
	"scripts":          {Name: "scripts", Strategy: StrategyCredits, Cost: 4, RequiredTier: models.TierFree},
	"hook-generator":   {Name: "hook-generator", Strategy: StrategyDaily, DailyLimit: 10, RequiredTier: models.TierFree},
	"script-generator": {Name: "script-generator", Strategy: StrategyDaily, DailyLimit: 5, RequiredTier: models.TierFree},
	"content-plan":     {Name: "content-plan", Strategy: StrategyDaily, DailyLimit: 3, RequiredTier: models.TierFree},
	"batch-export":     {Name: "batch-export", Strategy: StrategyTier, RequiredTier: models.TierPro},
	"team-workspace":   {Name: "team-workspace", Strategy: StrategyTier, RequiredTier: models.TierAgency},
}

// Lookup возвращает функцию по имени.
func Lookup(name string) (Feature, bool) {
	f, ok := catalog[name]
	return f, ok
}

// Cost возвращает стоимость функции в кредитах.
func Cost(name string) (int, bool) {
	f, ok := catalog[name]
	if !ok || f.Cost <= 0 {
		return 0, false
	}
	return f.Cost, true
}

// DailyLimit возвращает дневной лимит бесплатного уровня.
func DailyLimit(name string) (int, bool) {
	f, ok := catalog[name]
	if !ok || f.DailyLimit <= 0 {
		return 0, false
	}
	return f.DailyLimit, true
}

// All возвращает каталог, отсортированный по имени.
func All() []Feature {
	res := make([]Feature, 0, len(catalog))
	for _, f := range catalog {
		res = append(res, f)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res
}
