package scanner

import "fmt"

// BlockRange is an inclusive span of block heights.
type BlockRange struct {
	From uint64
	To   uint64
}

func (r BlockRange) Len() uint64 {
	return r.To - r.From + 1
}

func (r BlockRange) String() string {
	return fmt.Sprintf("[%d, %d]", r.From, r.To)
}

// SplitRange partitions [from, to] into contiguous ranges of at most span blocks.
// It returns nil when from > to or span is zero.
func SplitRange(from, to, span uint64) []BlockRange {
	if span == 0 || from > to {
		return nil
	}

	ranges := make([]BlockRange, 0, (to-from)/span+1)
	for start := from; ; {
		end := to
		if to-start >= span {
			end = start + span - 1
		}
		ranges = append(ranges, BlockRange{From: start, To: end})
		if end == to {
			return ranges
		}
		start = end + 1
	}
}
