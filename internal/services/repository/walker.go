package repository

import "context"

// FetchAll drains a paged list into one complete result set, advancing the
// offset until the store returns a short page. No snapshot isolation: records
// mutated mid-walk may be seen twice or not at all.
func FetchAll(ctx context.Context, repo Repository, filter ListFilter) ([]*FileRecord, error) {
	var all []*FileRecord

	limit := MaxPageSize
	for offset := 0; ; offset += limit {
		page, err := repo.ListFiles(ctx, filter, offset, limit)
		if err != nil {
			return nil, err
		}

		all = append(all, page...)

		if len(page) < limit {
			break
		}
	}

	return all, nil
}
