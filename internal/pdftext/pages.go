package pdftext

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ParsePageRange turns a spec like "1,3-5,9" into a sorted, deduplicated
// page list. max bounds the upper end; an empty spec returns nil, meaning
// every page.
func ParsePageRange(spec string, max int) ([]int, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}

	seen := make(map[int]struct{})
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, err := parsePart(part)
		if err != nil {
			return nil, err
		}
		if lo < 1 || hi > max || lo > hi {
			return nil, fmt.Errorf("page range %q outside 1..%d", part, max)
		}
		for n := lo; n <= hi; n++ {
			seen[n] = struct{}{}
		}
	}

	pages := make([]int, 0, len(seen))
	for n := range seen {
		pages = append(pages, n)
	}
	sort.Ints(pages)
	return pages, nil
}

func parsePart(part string) (int, int, error) {
	if lo, hi, found := strings.Cut(part, "-"); found {
		a, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return 0, 0, fmt.Errorf("bad page range %q", part)
		}
		b, err := strconv.Atoi(strings.TrimSpace(hi))
		if err != nil {
			return 0, 0, fmt.Errorf("bad page range %q", part)
		}
		return a, b, nil
	}
	n, err := strconv.Atoi(part)
	if err != nil {
		return 0, 0, fmt.Errorf("bad page number %q", part)
	}
	return n, n, nil
}
