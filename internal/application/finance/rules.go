package finance

import (
	"fmt"
	"strconv"

	"github.com/erp/tradecore/internal/domain/finance"
	"github.com/erp/tradecore/internal/infrastructure/config"
)

// RuleTableFromConfig converts the configured transition rules.
// An empty configuration yields the default table.
func RuleTableFromConfig(cfg config.TransitionConfig) (finance.RuleTable, error) {
	if len(cfg.Rules) == 0 {
		return finance.DefaultRuleTable(), nil
	}

	table := make(finance.RuleTable, len(cfg.Rules))
	for kindName, stages := range cfg.Rules {
		kind, err := finance.ParseDocumentKind(kindName)
		if err != nil {
			return nil, fmt.Errorf("transitions.rules: %w", err)
		}
		byStage := make(map[int][]finance.Status, len(stages))
		for stageKey, statuses := range stages {
			stage, err := strconv.Atoi(stageKey)
			if err != nil {
				return nil, fmt.Errorf("transitions.rules.%s: stage %q is not a number", kindName, stageKey)
			}
			converted := make([]finance.Status, len(statuses))
			for i, s := range statuses {
				converted[i] = finance.Status(s)
			}
			byStage[stage] = converted
		}
		table[kind] = byStage
	}

	if err := table.Validate(); err != nil {
		return nil, err
	}
	return table, nil
}
