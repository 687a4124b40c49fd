package relstore

import (
	"github.com/vimo-dev/akin/internal/apperr"
	"github.com/vimo-dev/akin/internal/model"
)

// CreateGroup creates a new similarity group and returns its id.
func (s *Store) CreateGroup(g *model.SimilarityGroup) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`INSERT INTO similarity_groups (project_id, name, reason, pattern) VALUES (?, ?, ?, ?)`,
		g.ProjectID, g.Name, g.Reason, g.Pattern)
	if err != nil {
		return 0, apperr.New(apperr.ErrCodeDatabaseOpen, "failed to create similarity group", err)
	}
	return res.LastInsertId()
}

// AddToGroup assigns qualifiedName's group_id to groupID. Overwrites any
// previously assigned group.
func (s *Store) AddToGroup(qualifiedName string, groupID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`UPDATE code_units SET group_id = ? WHERE qualified_name = ?`, groupID, qualifiedName)
	if err != nil {
		return apperr.New(apperr.ErrCodeDatabaseOpen, "failed to add unit to group", err)
	}
	return nil
}

// GetGroups returns every similarity group for projectID.
func (s *Store) GetGroups(projectID int64) ([]*model.SimilarityGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT id, project_id, name, reason, pattern FROM similarity_groups WHERE project_id = ? ORDER BY id`, projectID)
	if err != nil {
		return nil, apperr.New(apperr.ErrCodeDatabaseOpen, "failed to query similarity groups", err)
	}
	defer rows.Close()

	var out []*model.SimilarityGroup
	for rows.Next() {
		var g model.SimilarityGroup
		if err := rows.Scan(&g.ID, &g.ProjectID, &g.Name, &g.Reason, &g.Pattern); err != nil {
			return nil, apperr.New(apperr.ErrCodeDatabaseOpen, "failed to scan similarity group row", err)
		}
		out = append(out, &g)
	}
	return out, rows.Err()
}

// GetGroupMembers returns the qualified names of every unit in groupID.
func (s *Store) GetGroupMembers(groupID int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT qualified_name FROM code_units WHERE group_id = ? ORDER BY qualified_name`, groupID)
	if err != nil {
		return nil, apperr.New(apperr.ErrCodeDatabaseOpen, "failed to query group members", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, apperr.New(apperr.ErrCodeDatabaseOpen, "failed to scan group member row", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}
