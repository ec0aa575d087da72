package push

import (
	"fmt"
	"sort"

	"github.com/panshift/panshift/pkg/scm"
)

// Order sorts items into dependency-bucket order: tags, then addresses and
// services, then their groups, application filters, application groups,
// other standalone objects, profiles, the IPsec infrastructure chain, rules,
// and everything else. Items with equal rank keep selection order.
//
// Kinds the ranking cannot place are dropped with an error; with the closed
// kind set that only happens if flatten validation was bypassed. A cycle in
// the infrastructure chain degrades to declaration order and is reported as
// an error, never a panic.
func Order(items []Item) ([]Item, []string) {
	var errs []string

	infraOrder, err := scm.InfraChainOrder()
	if err != nil {
		errs = append(errs, err.Error())
	}

	type ranked struct {
		item    Item
		bucket  int
		subrank int
		pos     int
	}

	rankedItems := make([]ranked, 0, len(items))
	for i, item := range items {
		bucket, subrank, ok := scm.Rank(item.Kind, infraOrder)
		if !ok {
			errs = append(errs, fmt.Sprintf("%s %q: kind has no push order, dropped", item.Kind, item.Name))
			continue
		}
		rankedItems = append(rankedItems, ranked{item: item, bucket: bucket, subrank: subrank, pos: i})
	}

	sort.SliceStable(rankedItems, func(a, b int) bool {
		if rankedItems[a].bucket != rankedItems[b].bucket {
			return rankedItems[a].bucket < rankedItems[b].bucket
		}
		if rankedItems[a].subrank != rankedItems[b].subrank {
			return rankedItems[a].subrank < rankedItems[b].subrank
		}
		return rankedItems[a].pos < rankedItems[b].pos
	})

	out := make([]Item, len(rankedItems))
	for i, r := range rankedItems {
		out[i] = r.item
	}
	return out, errs
}
