package dedup

import (
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/tabforge/tabforge/pkg/compare"
	"github.com/tabforge/tabforge/pkg/record"
)

// sortRecords stable-sorts recs in place by the comparator over the
// selection. Chunks of the input are sorted concurrently across a pool
// bounded by jobs, then merged pairwise; equal records keep their input
// order because each merge prefers the earlier chunk.
func sortRecords(recs []record.Record, sel *record.Selection, cmp compare.Comparator, jobs int) {
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}
	if len(recs) < 2 {
		return
	}

	keys := make([][][]byte, len(recs))
	for i, rec := range recs {
		keys[i] = sel.Project(rec)
	}

	items := make([]sortItem, len(recs))
	for i := range recs {
		items[i] = sortItem{rec: recs[i], key: keys[i]}
	}

	chunks := splitChunks(items, jobs)

	var g errgroup.Group
	g.SetLimit(jobs)
	for _, chunk := range chunks {
		chunk := chunk
		g.Go(func() error {
			sort.SliceStable(chunk, func(i, j int) bool {
				return cmp.Compare(chunk[i].key, chunk[j].key) < 0
			})
			return nil
		})
	}
	// Workers cannot fail; errgroup is used for its bounded pool.
	_ = g.Wait()

	merged := mergeChunks(chunks, cmp)
	for i := range merged {
		recs[i] = merged[i].rec
	}
}

type sortItem struct {
	rec record.Record
	key [][]byte
}

func splitChunks(items []sortItem, n int) [][]sortItem {
	if n > len(items) {
		n = len(items)
	}
	chunks := make([][]sortItem, 0, n)
	size := (len(items) + n - 1) / n
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end])
	}
	return chunks
}

// mergeChunks merges sorted chunks pairwise until one remains. Preferring
// the left (earlier-input) chunk on equality keeps the overall sort stable.
func mergeChunks(chunks [][]sortItem, cmp compare.Comparator) []sortItem {
	for len(chunks) > 1 {
		next := make([][]sortItem, 0, (len(chunks)+1)/2)
		for i := 0; i < len(chunks); i += 2 {
			if i+1 == len(chunks) {
				next = append(next, chunks[i])
				break
			}
			next = append(next, mergeTwo(chunks[i], chunks[i+1], cmp))
		}
		chunks = next
	}
	if len(chunks) == 0 {
		return nil
	}
	return chunks[0]
}

func mergeTwo(a, b []sortItem, cmp compare.Comparator) []sortItem {
	out := make([]sortItem, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if cmp.Compare(a[i].key, b[j].key) <= 0 {
			out = append(out, a[i])
			i++
		} else {
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}
