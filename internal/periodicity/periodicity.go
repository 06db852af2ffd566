// Package periodicity models recurrence rules as a short chain of calendar
// units and decides whether a date matches them.
//
// A chain has at most three nodes. The level-0 node enumerates days (of the
// year, month or week), level 1 narrows a weekly rule to weeks (of the year or
// month) and level 2 narrows to months of the year:
//
//	{CategoryID: 2, LevelID: 0, Values: [1, 15]}        1st and 15th of every month
//	{CategoryID: 3, LevelID: 2, Values: [6]}            ... of June only
//	{CategoryID: 1, LevelID: 0, Values: [1]}            every Monday
//	{CategoryID: 2, LevelID: 1, Values: [1]}            ... of the first week of the month
//
// A node's LevelID names the CategoryID of the next node down the chain; the
// chain ends at the node whose LevelID is 0.
package periodicity

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/tartampluch/go-attendance/internal/apperr"
	"github.com/tartampluch/go-attendance/internal/config"
)

// Categories. Their meaning depends on the level of the node: at level 0 the
// category is the unit whose days are listed, at level 1 the unit whose weeks
// are listed, at level 2 the year whose months are listed.
const (
	Weekly  = 1
	Monthly = 2
	Yearly  = 3
)

// Periodicity is one node of a recurrence chain.
type Periodicity struct {
	CategoryID int   `json:"CategoryID" validate:"gte=0"`
	LevelID    int   `json:"LevelID" validate:"gte=0"`
	Values     []int `json:"Values" validate:"required,dive,gte=1,lte=366"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Parse decodes a JSON array of nodes.
func Parse(data []byte) ([]Periodicity, error) {
	var nodes []Periodicity
	if err := json.Unmarshal(data, &nodes); err != nil {
		return nil, apperr.Wrap(err, apperr.KindInvalidArgument, config.ErrPeriodicityParse)
	}
	return nodes, nil
}

// Validate resolves nodes into a chain ordered by descending CategoryID.
//
// The root is the node with the highest CategoryID. While the current node
// has a non-zero LevelID, exactly one other node must carry that value as its
// CategoryID; it is appended and becomes current. Resolution stops after
// config.MaxChainDepth nodes. A CategoryID or LevelID used twice is a
// DuplicateRule; a missing or doubled parent is an AmbiguousRule.
func Validate(nodes ...Periodicity) ([]Periodicity, error) {
	if len(nodes) == 0 {
		return nil, apperr.New(apperr.KindInvalidArgument, config.ErrNoPeriodicity)
	}
	for i, n := range nodes {
		if err := validate.Struct(n); err != nil {
			return nil, apperr.Wrap(err, apperr.KindInvalidArgument, fmt.Sprintf("%s #%d", config.ErrNodeInvalid, i))
		}
	}
	if err := checkDuplicates(nodes); err != nil {
		return nil, err
	}

	root := 0
	for i := range nodes {
		if nodes[i].CategoryID > nodes[root].CategoryID {
			root = i
		}
	}

	chain := []int{root}
	for len(chain) < config.MaxChainDepth {
		current := nodes[chain[len(chain)-1]]
		if current.LevelID == 0 {
			break
		}
		parent, err := findCategory(nodes, chain, current.LevelID)
		if err != nil {
			return nil, err
		}
		chain = append(chain, parent)
	}

	out := make([]Periodicity, len(chain))
	for i, idx := range chain {
		out[i] = nodes[idx]
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CategoryID > out[j].CategoryID })
	return out, nil
}

func checkDuplicates(nodes []Periodicity) error {
	categories := make(map[int]bool, len(nodes))
	levels := make(map[int]bool, len(nodes))
	for _, n := range nodes {
		if categories[n.CategoryID] {
			return apperr.Newf(apperr.KindDuplicateRule, "%s: %d", config.ErrDuplicateCat, n.CategoryID)
		}
		if levels[n.LevelID] {
			return apperr.Newf(apperr.KindDuplicateRule, "%s: %d", config.ErrDuplicateLevel, n.LevelID)
		}
		categories[n.CategoryID] = true
		levels[n.LevelID] = true
	}
	return nil
}

// findCategory returns the index of the single node outside used whose
// CategoryID equals category.
func findCategory(nodes []Periodicity, used []int, category int) (int, error) {
	found := -1
	for i, n := range nodes {
		if n.CategoryID != category || contains(used, i) {
			continue
		}
		if found >= 0 {
			return 0, apperr.Newf(apperr.KindAmbiguousRule, "%s: %d", config.ErrParentMany, category)
		}
		found = i
	}
	if found < 0 {
		return 0, apperr.Newf(apperr.KindAmbiguousRule, "%s: %d", config.ErrParentMissing, category)
	}
	return found, nil
}

func contains(values []int, v int) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
