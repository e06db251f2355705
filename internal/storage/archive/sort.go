package archive

import "sort"

// Newest returns up to n objects, most recently modified first. Objects with
// the same modification time are ordered by descending path. n <= 0 keeps all.
func Newest(objs []Object, n int) []Object {
	sorted := make([]Object, len(objs))
	copy(sorted, objs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].LastModified.Equal(sorted[j].LastModified) {
			return sorted[i].LastModified.After(sorted[j].LastModified)
		}
		return sorted[i].Path > sorted[j].Path
	})

	if n > 0 && n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}
