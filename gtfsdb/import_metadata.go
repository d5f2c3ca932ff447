package gtfsdb

import "context"

// GetImportMetadata returns the record of the last static import. It
// returns sql.ErrNoRows before the first import.
func (q *Queries) GetImportMetadata(ctx context.Context) (ImportMetadata, error) {
	var m ImportMetadata
	err := q.db.QueryRowContext(ctx, `
		SELECT file_hash, file_source, import_time FROM import_metadata WHERE id = 1`,
	).Scan(&m.FileHash, &m.FileSource, &m.ImportTime)
	return m, err
}

func (q *Queries) UpsertImportMetadata(ctx context.Context, arg ImportMetadata) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO import_metadata (id, file_hash, file_source, import_time)
		VALUES (1, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			file_hash = excluded.file_hash,
			file_source = excluded.file_source,
			import_time = excluded.import_time`,
		arg.FileHash, arg.FileSource, arg.ImportTime,
	)
	return err
}
