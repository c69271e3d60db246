package engine

import (
	"sort"

	"github.com/lromero/facturabot/internal/domain"
	"github.com/lromero/facturabot/internal/portal"
)

// Plan groups work items by normalized provider and splits each group into
// fixed-size batches, preserving the input order within every group. Batch
// indexes are global across the plan so sibling log keys never collide, and
// the same items with the same batch size always produce the same plan.
func Plan(items []domain.WorkItem, batchSize int, executionID string) []domain.Batch {
	if batchSize < 1 {
		batchSize = 1
	}

	grouped := make(map[string][]domain.WorkItem)
	var providers []string
	for _, item := range items {
		key := portal.NormalizeProvider(item.Provider)
		if _, seen := grouped[key]; !seen {
			providers = append(providers, key)
		}
		grouped[key] = append(grouped[key], item)
	}
	sort.Strings(providers)

	var batches []domain.Batch
	for _, provider := range providers {
		group := grouped[provider]
		for i := 0; i < len(group); i += batchSize {
			end := i + batchSize
			if end > len(group) {
				end = len(group)
			}
			batches = append(batches, domain.Batch{
				Provider:    provider,
				Items:       group[i:end],
				BatchIndex:  len(batches),
				ExecutionID: executionID,
			})
		}
	}
	for i := range batches {
		batches[i].TotalBatches = len(batches)
	}
	return batches
}

// GroupByProvider returns items keyed by normalized provider, for the dry-run
// analysis endpoint.
func GroupByProvider(items []domain.WorkItem) map[string][]domain.WorkItem {
	grouped := make(map[string][]domain.WorkItem)
	for _, item := range items {
		key := portal.NormalizeProvider(item.Provider)
		grouped[key] = append(grouped[key], item)
	}
	return grouped
}
