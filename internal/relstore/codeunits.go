package relstore

import (
	"database/sql"

	"github.com/vimo-dev/akin/internal/apperr"
	"github.com/vimo-dev/akin/internal/model"
)

// UpsertCodeUnit writes unit, implementing the structure-hash group
// inheritance invariant: if another unit already carries a group_id under
// the same structure_hash, the incoming unit acquires it unless it already
// has one of its own. On conflict (same qualified_name), file range, kind,
// both hashes, and group_id (if still unset) are updated; the embedding is
// only overwritten when unit.Embedding is non-nil, otherwise the existing
// blob is preserved - this is what lets batch indexing reuse cached
// embeddings across unchanged content_hashes.
func (s *Store) UpsertCodeUnit(unit *model.CodeUnit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	groupID := unit.GroupID
	if groupID == nil {
		var inherited sql.NullInt64
		err := s.db.QueryRow(
			`SELECT group_id FROM code_units WHERE structure_hash = ? AND group_id IS NOT NULL LIMIT 1`,
			unit.StructureHash,
		).Scan(&inherited)
		if err != nil && err != sql.ErrNoRows {
			return apperr.New(apperr.ErrCodeDatabaseOpen, "failed to look up inherited group", err)
		}
		if inherited.Valid {
			v := inherited.Int64
			groupID = &v
		}
	}

	_, err := s.db.Exec(`
		INSERT INTO code_units (
			qualified_name, project_id, file_path, kind, range_start, range_end,
			selection_line, selection_column, body, content_hash, structure_hash, embedding, group_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(qualified_name) DO UPDATE SET
			file_path = excluded.file_path,
			kind = excluded.kind,
			range_start = excluded.range_start,
			range_end = excluded.range_end,
			selection_line = excluded.selection_line,
			selection_column = excluded.selection_column,
			body = excluded.body,
			content_hash = excluded.content_hash,
			structure_hash = excluded.structure_hash,
			embedding = CASE WHEN excluded.embedding IS NOT NULL THEN excluded.embedding ELSE code_units.embedding END,
			group_id = CASE WHEN code_units.group_id IS NOT NULL THEN code_units.group_id ELSE excluded.group_id END
	`,
		unit.QualifiedName, unit.ProjectID, unit.FilePath, string(unit.Kind), unit.RangeStart, unit.RangeEnd,
		unit.SelectionLine, unit.SelectionColumn, unit.Body, unit.ContentHash, unit.StructureHash,
		nullableBlob(unit.Embedding), nullableInt64(groupID),
	)
	if err != nil {
		return apperr.New(apperr.ErrCodeDatabaseOpen, "failed to upsert code unit", err)
	}
	return nil
}

// GetEmbeddingByContentHash returns a cached embedding for content_hash, if
// any unit already carries one. Used to avoid re-embedding unchanged code.
func (s *Store) GetEmbeddingByContentHash(hash string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var blob []byte
	err := s.db.QueryRow(
		`SELECT embedding FROM code_units WHERE content_hash = ? AND embedding IS NOT NULL LIMIT 1`,
		hash,
	).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apperr.New(apperr.ErrCodeDatabaseOpen, "failed to look up cached embedding", err)
	}
	return blob, true, nil
}

const codeUnitColumns = `qualified_name, project_id, file_path, kind, range_start, range_end,
	selection_line, selection_column, body, content_hash, structure_hash, embedding, group_id`

// GetCodeUnit loads a single unit by qualified name, or (nil, nil) if absent.
func (s *Store) GetCodeUnit(qualifiedName string) (*model.CodeUnit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRow(`SELECT `+codeUnitColumns+` FROM code_units WHERE qualified_name = ?`, qualifiedName)
	unit, err := scanCodeUnit(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return unit, err
}

// GetCodeUnitsByProject returns every unit belonging to projectID.
func (s *Store) GetCodeUnitsByProject(projectID int64) ([]*model.CodeUnit, error) {
	return s.queryCodeUnits(`SELECT `+codeUnitColumns+` FROM code_units WHERE project_id = ?`, projectID)
}

// GetCodeUnitsByProjects returns units for the given project ids, or every
// unit in the database when ids is empty (the "all projects" scope).
func (s *Store) GetCodeUnitsByProjects(ids []int64) ([]*model.CodeUnit, error) {
	if len(ids) == 0 {
		return s.queryCodeUnits(`SELECT ` + codeUnitColumns + ` FROM code_units`)
	}

	placeholders := make([]byte, 0, len(ids)*2)
	args := make([]any, len(ids))
	for i, id := range ids {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
		args[i] = id
	}
	query := `SELECT ` + codeUnitColumns + ` FROM code_units WHERE project_id IN (` + string(placeholders) + `)`
	return s.queryCodeUnits(query, args...)
}

// GetCodeUnitsByFile returns every unit extracted from filePath in projectID.
func (s *Store) GetCodeUnitsByFile(projectID int64, filePath string) ([]*model.CodeUnit, error) {
	return s.queryCodeUnits(
		`SELECT `+codeUnitColumns+` FROM code_units WHERE project_id = ? AND file_path = ?`,
		projectID, filePath)
}

// DeleteCodeUnitsByFile removes every unit extracted from filePath,
// cascading to any similar_pairs that reference them.
func (s *Store) DeleteCodeUnitsByFile(projectID int64, filePath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`DELETE FROM code_units WHERE project_id = ? AND file_path = ?`, projectID, filePath)
	if err != nil {
		return apperr.New(apperr.ErrCodeDatabaseOpen, "failed to delete code units by file", err)
	}
	return nil
}

func (s *Store) queryCodeUnits(query string, args ...any) ([]*model.CodeUnit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, apperr.New(apperr.ErrCodeDatabaseOpen, "failed to query code units", err)
	}
	defer rows.Close()

	var out []*model.CodeUnit
	for rows.Next() {
		unit, err := scanCodeUnit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, unit)
	}
	return out, rows.Err()
}

func scanCodeUnit(scanner rowScanner) (*model.CodeUnit, error) {
	var unit model.CodeUnit
	var kind string
	var embedding []byte
	var groupID sql.NullInt64

	if err := scanner.Scan(
		&unit.QualifiedName, &unit.ProjectID, &unit.FilePath, &kind, &unit.RangeStart, &unit.RangeEnd,
		&unit.SelectionLine, &unit.SelectionColumn, &unit.Body, &unit.ContentHash, &unit.StructureHash,
		&embedding, &groupID,
	); err != nil {
		if err == sql.ErrNoRows {
			// Passed through unwrapped so GetCodeUnit can map an absent
			// row to (nil, nil).
			return nil, err
		}
		return nil, apperr.New(apperr.ErrCodeDatabaseOpen, "failed to scan code unit row", err)
	}

	unit.Kind = model.Kind(kind)
	unit.Embedding = embedding
	if groupID.Valid {
		v := groupID.Int64
		unit.GroupID = &v
	}
	return &unit, nil
}

func nullableBlob(b []byte) any {
	if b == nil {
		return nil
	}
	return b
}

func nullableInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}
