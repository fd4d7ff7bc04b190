package indexer

import "fmt"

// BlockRange is an inclusive span of blocks fetched with one FilterLogs call.
type BlockRange struct {
	From uint64
	To   uint64
}

// ScanPlan is the confirmed window of one indexer run cut into batches.
type ScanPlan struct {
	Window  BlockRange
	Batches []BlockRange
}

// Empty reports whether there is nothing confirmed to scan.
func (p ScanPlan) Empty() bool {
	return len(p.Batches) == 0
}

// PlanScan cuts [from, to] into batchSize spans, never reaching past the head
// minus confirmations. A zero to scans up to the confirmed head.
func PlanScan(from, to, head, confirmations, batchSize uint64) (ScanPlan, error) {
	if batchSize == 0 {
		return ScanPlan{}, fmt.Errorf("batch size must be greater than zero")
	}
	if head < confirmations {
		return ScanPlan{}, nil
	}
	confirmed := head - confirmations
	if to == 0 || to > confirmed {
		to = confirmed
	}
	if from > to {
		return ScanPlan{}, nil
	}

	plan := ScanPlan{Window: BlockRange{From: from, To: to}}
	for start := from; ; start += batchSize {
		end := to
		if to-start >= batchSize {
			end = start + batchSize - 1
		}
		plan.Batches = append(plan.Batches, BlockRange{From: start, To: end})
		if end == to {
			return plan, nil
		}
	}
}
