// Package rewards holds the pluggable business rules for NPC-death and
// quest-completion payouts. The sync core only depends on the lookup
// contract; the numbers themselves are game design, not engine logic.
package rewards

// Reward is the payout granted for killing an NPC type or completing a quest.
type Reward struct {
	Credits    int64
	Cosmos     int64
	Experience int64
	Honor      int64
}

// Rules maps NPC/quest type keys to rewards.
type Rules struct {
	table map[string]Reward
}

// NewRules builds a rule set from a table. A nil table yields rules that
// return zero rewards for every key.
func NewRules(table map[string]Reward) *Rules {
	if table == nil {
		table = make(map[string]Reward)
	}
	return &Rules{table: table}
}

// Defaults returns the shipped reward table.
func Defaults() *Rules {
	return NewRules(map[string]Reward{
		"scout":            {Credits: 400, Cosmos: 1, Experience: 100, Honor: 2},
		"marauder":         {Credits: 800, Cosmos: 2, Experience: 320, Honor: 4},
		"dreadnought":      {Credits: 4000, Cosmos: 8, Experience: 1600, Honor: 16},
		"quest:default":    {Credits: 1000, Cosmos: 4, Experience: 500, Honor: 8},
		"resource:default": {Credits: 50, Experience: 20},
	})
}

// Lookup returns the reward for kind and whether a rule exists. Unknown kinds
// pay nothing; the caller decides whether that is worth logging.
func (r *Rules) Lookup(kind string) (Reward, bool) {
	reward, ok := r.table[kind]
	return reward, ok
}
