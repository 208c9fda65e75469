package mine

import (
	"context"
	"fmt"
)

// ResolveRange converts a requested [low, high] number range into a pair of
// inclusive flat indices into the collection. Both bounds are clamped to the
// highest number present in the collection; numbers that fall in a gap
// resolve to the nearest lower existing record. The bounds are resolved
// independently and returned in input order.
func ResolveRange(ctx context.Context, coll Collection, low, high int) (int, int, error) {
	total, err := coll.TotalCount(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("total count: %w", err)
	}
	if total == 0 {
		return 0, 0, fmt.Errorf("collection is empty")
	}

	pageLen := coll.PageLength()
	lastPageIndex := (total - 1) / pageLen

	lastPage, err := coll.Page(ctx, lastPageIndex)
	if err != nil {
		return 0, 0, fmt.Errorf("fetch last page: %w", err)
	}
	if len(lastPage) == 0 {
		return 0, 0, fmt.Errorf("last page %d is empty", lastPageIndex)
	}
	highest := lastPage[len(lastPage)-1].Number()

	var indices [2]int
	for i, target := range [2]int{min(low, highest), min(high, highest)} {
		pageIndex, err := pageIndexFor(ctx, coll, lastPageIndex, target)
		if err != nil {
			return 0, 0, err
		}

		page, err := coll.Page(ctx, pageIndex)
		if err != nil {
			return 0, 0, fmt.Errorf("fetch page %d: %w", pageIndex, err)
		}

		offset := offsetFor(page, len(page), target)
		indices[i] = pageIndex*pageLen + offset
	}

	return indices[0], indices[1], nil
}

// pageIndexFor binary-searches page indices [0, lastPageIndex] for the page
// whose first and last numbers bracket target. When the target falls in a
// gap between two pages the search settles on the page below it rather than
// failing; a target beneath the whole collection yields page zero. Each
// probe costs one remote page fetch, which dominates resolution latency.
func pageIndexFor(ctx context.Context, coll Collection, lastPageIndex, target int) (int, error) {
	low, high := 0, lastPageIndex
	floor := 0

	for low <= high {
		mid := (low + high) / 2

		page, err := coll.Page(ctx, mid)
		if err != nil {
			return 0, fmt.Errorf("fetch page %d: %w", mid, err)
		}
		if len(page) == 0 {
			return 0, fmt.Errorf("page %d is empty", mid)
		}

		switch {
		case target < page[0].Number():
			high = mid - 1
		case target <= page[len(page)-1].Number():
			return mid, nil
		default:
			// Page lies entirely below the target: best floor so far.
			floor = mid
			low = mid + 1
		}
	}

	return floor, nil
}

// offsetFor binary-searches one page for the offset of target. If no record
// with that number exists the offset of the greatest number below it is
// returned; a target beneath the whole page yields offset zero. pageLen must
// be the actual length of the page, which on the final page may be shorter
// than the collection's fixed page length.
func offsetFor(page Page, pageLen, target int) int {
	low, high := 0, pageLen-1

	for low < high {
		// Round up so low = mid always makes progress.
		mid := (low + high + 1) / 2
		cur := page[mid].Number()

		switch {
		case cur == target:
			return mid
		case cur < target:
			low = mid
		default:
			high = mid - 1
		}
	}

	return low
}
