package relstore

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/vimo-dev/akin/internal/apperr"
	"github.com/vimo-dev/akin/internal/model"
)

// UpsertSimilarPair writes a single pair, normalizing (a, b) to canonical
// lexicographic order before the write. On conflict, similarity and
// trigger_reason are updated; status is left untouched so a reviewer's
// ignore/confirm decision survives a re-scan.
func (s *Store) UpsertSimilarPair(a, b string, similarity float64, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsertPairLocked(a, b, similarity, reason)
}

func (s *Store) upsertPairLocked(a, b string, similarity float64, reason string) error {
	unitA, unitB := model.CanonicalPair(a, b)
	_, err := s.db.Exec(`
		INSERT INTO similar_pairs (unit_a, unit_b, similarity, status, trigger_reason)
		VALUES (?, ?, ?, 'new', ?)
		ON CONFLICT(unit_a, unit_b) DO UPDATE SET
			similarity = excluded.similarity,
			trigger_reason = excluded.trigger_reason
	`, unitA, unitB, similarity, nullableString(reason))
	if err != nil {
		return apperr.New(apperr.ErrCodeDatabaseOpen, "failed to upsert similar pair", err)
	}
	return nil
}

// BatchUpsertSimilarPairs writes every pair in one explicit transaction;
// any single failure rolls back the entire batch.
func (s *Store) BatchUpsertSimilarPairs(pairs []model.SimilarPair, reason string) error {
	if len(pairs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return apperr.New(apperr.ErrCodeDatabaseOpen, "failed to begin batch pair transaction", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO similar_pairs (unit_a, unit_b, similarity, status, trigger_reason)
		VALUES (?, ?, ?, 'new', ?)
		ON CONFLICT(unit_a, unit_b) DO UPDATE SET
			similarity = excluded.similarity,
			trigger_reason = excluded.trigger_reason
	`)
	if err != nil {
		tx.Rollback()
		return apperr.New(apperr.ErrCodeDatabaseOpen, "failed to prepare batch pair insert", err)
	}
	defer stmt.Close()

	for _, p := range pairs {
		unitA, unitB := model.CanonicalPair(p.UnitA, p.UnitB)
		if _, err := stmt.Exec(unitA, unitB, p.Similarity, nullableString(reason)); err != nil {
			tx.Rollback()
			return apperr.New(apperr.ErrCodeDatabaseOpen, "batch pair insert failed, rolled back", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperr.New(apperr.ErrCodeDatabaseOpen, "failed to commit batch pair transaction", err)
	}
	return nil
}

// PairQuery narrows GetSimilarPairs. An empty ProjectIDs or Status means
// "no filter on that field".
type PairQuery struct {
	ProjectIDs    []int64
	Status        model.PairStatus
	MinSimilarity float64
}

// SimilarPairView decorates a SimilarPair with the file/line metadata of
// both referenced units, as returned to CLI/hook callers.
type SimilarPairView struct {
	model.SimilarPair
	FileA string
	LineA int
	FileB string
	LineB int
}

// GetSimilarPairs returns pairs matching q, each side joined against its
// code unit for file/line metadata, ordered by similarity descending.
func (s *Store) GetSimilarPairs(q PairQuery) ([]SimilarPairView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		SELECT p.id, p.unit_a, p.unit_b, p.similarity, p.status, p.trigger_reason,
		       ua.file_path, ua.range_start, ub.file_path, ub.range_start
		FROM similar_pairs p
		JOIN code_units ua ON ua.qualified_name = p.unit_a
		JOIN code_units ub ON ub.qualified_name = p.unit_b
		WHERE p.similarity >= ?`
	args := []any{q.MinSimilarity}

	if len(q.ProjectIDs) > 0 {
		placeholders := make([]string, len(q.ProjectIDs))
		for i := range q.ProjectIDs {
			placeholders[i] = "?"
		}
		inClause := strings.Join(placeholders, ",")
		query += ` AND (ua.project_id IN (` + inClause + `) OR ub.project_id IN (` + inClause + `))`
		for _, id := range q.ProjectIDs {
			args = append(args, id)
		}
		for _, id := range q.ProjectIDs {
			args = append(args, id)
		}
	}
	if q.Status != "" {
		query += ` AND p.status = ?`
		args = append(args, string(q.Status))
	}
	query += ` ORDER BY p.similarity DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, apperr.New(apperr.ErrCodeDatabaseOpen, "failed to query similar pairs", err)
	}
	defer rows.Close()

	var out []SimilarPairView
	for rows.Next() {
		var v SimilarPairView
		var status, reason sql.NullString
		if err := rows.Scan(&v.ID, &v.UnitA, &v.UnitB, &v.Similarity, &status, &reason,
			&v.FileA, &v.LineA, &v.FileB, &v.LineB); err != nil {
			return nil, apperr.New(apperr.ErrCodeDatabaseOpen, "failed to scan similar pair row", err)
		}
		v.Status = model.PairStatus(status.String)
		v.TriggerReason = reason.String
		out = append(out, v)
	}
	return out, rows.Err()
}

// UpdatePairStatus transitions the pair (a, b) to status.
func (s *Store) UpdatePairStatus(a, b string, status model.PairStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	unitA, unitB := model.CanonicalPair(a, b)
	res, err := s.db.Exec(`UPDATE similar_pairs SET status = ? WHERE unit_a = ? AND unit_b = ?`,
		string(status), unitA, unitB)
	if err != nil {
		return apperr.New(apperr.ErrCodeDatabaseOpen, "failed to update pair status", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.New(apperr.ErrCodeDatabaseOpen, "failed to read rows affected", err)
	}
	if n == 0 {
		return apperr.New(apperr.ErrCodeFileNotFound, fmt.Sprintf("no pair found for (%s, %s)", unitA, unitB), nil)
	}
	return nil
}

// DeletePairsInvolving removes every pair referencing qname, used when a
// unit is about to be removed outside of the file-delete cascade path.
func (s *Store) DeletePairsInvolving(qname string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`DELETE FROM similar_pairs WHERE unit_a = ? OR unit_b = ?`, qname, qname)
	if err != nil {
		return apperr.New(apperr.ErrCodeDatabaseOpen, "failed to delete pairs involving unit", err)
	}
	return nil
}

// IgnoredPairSet loads every (unit_a, unit_b) pair with status=ignored as a
// two-directional lookup set, used by the hook to filter matches in O(1)
// without a query per candidate.
type IgnoredPairSet map[string]struct{}

// Contains reports whether (a, b) - in either order - is marked ignored.
func (set IgnoredPairSet) Contains(a, b string) bool {
	unitA, unitB := model.CanonicalPair(a, b)
	_, ok := set[unitA+"\x00"+unitB]
	return ok
}

// LoadIgnoredPairs returns the full ignored-pair set for the given project
// scope (empty ids means all projects).
func (s *Store) LoadIgnoredPairs(projectIDs []int64) (IgnoredPairSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `SELECT p.unit_a, p.unit_b FROM similar_pairs p WHERE p.status = 'ignored'`
	var args []any
	if len(projectIDs) > 0 {
		placeholders := make([]string, len(projectIDs))
		for i, id := range projectIDs {
			placeholders[i] = "?"
			args = append(args, id)
		}
		query = `
			SELECT p.unit_a, p.unit_b FROM similar_pairs p
			JOIN code_units ua ON ua.qualified_name = p.unit_a
			WHERE p.status = 'ignored' AND ua.project_id IN (` + strings.Join(placeholders, ",") + `)`
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, apperr.New(apperr.ErrCodeDatabaseOpen, "failed to load ignored pairs", err)
	}
	defer rows.Close()

	set := make(IgnoredPairSet)
	for rows.Next() {
		var a, b string
		if err := rows.Scan(&a, &b); err != nil {
			return nil, apperr.New(apperr.ErrCodeDatabaseOpen, "failed to scan ignored pair row", err)
		}
		set[a+"\x00"+b] = struct{}{}
	}
	return set, rows.Err()
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
