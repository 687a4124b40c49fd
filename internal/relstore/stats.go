package relstore

import (
	"github.com/vimo-dev/akin/internal/apperr"
	"github.com/vimo-dev/akin/internal/model"
)

// GetStats summarizes projectID's indexed state. A zero projectID
// summarizes the whole database.
func (s *Store) GetStats(projectID int64) (*model.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := &model.Stats{PairsByStatus: make(map[model.PairStatus]int)}

	unitsQuery := `SELECT COUNT(*) FROM code_units`
	groupsQuery := `SELECT COUNT(*) FROM similarity_groups`
	var unitsArgs, groupsArgs []any
	if projectID != 0 {
		unitsQuery += ` WHERE project_id = ?`
		groupsQuery += ` WHERE project_id = ?`
		unitsArgs = append(unitsArgs, projectID)
		groupsArgs = append(groupsArgs, projectID)
	}

	if err := s.db.QueryRow(unitsQuery, unitsArgs...).Scan(&stats.TotalUnits); err != nil {
		return nil, apperr.New(apperr.ErrCodeDatabaseOpen, "failed to count code units", err)
	}
	if err := s.db.QueryRow(groupsQuery, groupsArgs...).Scan(&stats.TotalGroups); err != nil {
		return nil, apperr.New(apperr.ErrCodeDatabaseOpen, "failed to count similarity groups", err)
	}

	pairsQuery := `
		SELECT p.status, COUNT(*) FROM similar_pairs p
		JOIN code_units ua ON ua.qualified_name = p.unit_a`
	var pairsArgs []any
	if projectID != 0 {
		pairsQuery += ` WHERE ua.project_id = ?`
		pairsArgs = append(pairsArgs, projectID)
	}
	pairsQuery += ` GROUP BY p.status`

	rows, err := s.db.Query(pairsQuery, pairsArgs...)
	if err != nil {
		return nil, apperr.New(apperr.ErrCodeDatabaseOpen, "failed to count pairs by status", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, apperr.New(apperr.ErrCodeDatabaseOpen, "failed to scan pair status count", err)
		}
		stats.PairsByStatus[model.PairStatus(status)] = count
	}
	return stats, rows.Err()
}
