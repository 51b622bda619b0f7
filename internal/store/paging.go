package store

import "context"

// ListKept pages through s with f and keeps rows for which keep returns true,
// so offset and limit apply to the kept rows. The returned total counts every
// kept row seen, which is exact once the scan has run past the last page.
func ListKept(ctx context.Context, s Store, f JobFilter, keep func(Job) bool) ([]Job, int, error) {
	f = f.Paged()
	offset, limit := f.Offset, f.Limit

	chunk := limit * 3
	if chunk < 100 {
		chunk = 100
	}
	scan := f
	scan.Limit = chunk

	var out []Job
	kept := 0
	for start := 0; ; start += chunk {
		scan.Offset = start
		rows, err := s.ScanJobs(ctx, scan)
		if err != nil {
			return nil, 0, err
		}
		for _, j := range rows {
			if !keep(j) {
				continue
			}
			kept++
			if kept > offset && len(out) < limit {
				out = append(out, j)
			}
		}
		if len(out) >= limit && kept >= offset+limit {
			break
		}
		if len(rows) < chunk {
			break
		}
	}
	return out, kept, nil
}
