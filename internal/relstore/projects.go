package relstore

import (
	"database/sql"

	"github.com/vimo-dev/akin/internal/apperr"
	"github.com/vimo-dev/akin/internal/model"
)

// GetOrCreateProject returns the id of the project at rootPath, creating it
// (with the given name and language) if it does not already exist.
func (s *Store) GetOrCreateProject(name, rootPath string, lang model.Language) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var id int64
	err := s.db.QueryRow(`SELECT id FROM projects WHERE root_path = ?`, rootPath).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, apperr.New(apperr.ErrCodeDatabaseOpen, "failed to query project", err)
	}

	res, err := s.db.Exec(`INSERT INTO projects (name, root_path, language) VALUES (?, ?, ?)`,
		name, rootPath, string(lang))
	if err != nil {
		return 0, apperr.New(apperr.ErrCodeDatabaseOpen, "failed to create project", err)
	}
	return res.LastInsertId()
}

// UpdateProjectIndexedTime stamps the project's last_indexed_at to now.
func (s *Store) UpdateProjectIndexedTime(id int64, unixSeconds int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`UPDATE projects SET last_indexed_at = ? WHERE id = ?`, unixSeconds, id)
	if err != nil {
		return apperr.New(apperr.ErrCodeDatabaseOpen, "failed to update project indexed time", err)
	}
	return nil
}

// GetProjectByRootPath looks up a project by its unique root_path, or
// returns (nil, nil) if no project has been indexed there yet.
func (s *Store) GetProjectByRootPath(rootPath string) (*model.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRow(`SELECT id, name, root_path, language, last_indexed_at FROM projects WHERE root_path = ?`, rootPath)
	return scanProject(row)
}

// GetProject loads a single project by id.
func (s *Store) GetProject(id int64) (*model.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRow(`SELECT id, name, root_path, language, last_indexed_at FROM projects WHERE id = ?`, id)
	return scanProject(row)
}

// ListProjects returns every known project, ordered by id.
func (s *Store) ListProjects() ([]*model.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT id, name, root_path, language, last_indexed_at FROM projects ORDER BY id`)
	if err != nil {
		return nil, apperr.New(apperr.ErrCodeDatabaseOpen, "failed to list projects", err)
	}
	defer rows.Close()

	var out []*model.Project
	for rows.Next() {
		p, err := scanProjectRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row *sql.Row) (*model.Project, error) {
	return scanProjectGeneric(row)
}

func scanProjectRows(rows *sql.Rows) (*model.Project, error) {
	return scanProjectGeneric(rows)
}

func scanProjectGeneric(scanner rowScanner) (*model.Project, error) {
	var p model.Project
	var lang string
	var lastIndexed sql.NullInt64
	if err := scanner.Scan(&p.ID, &p.Name, &p.RootPath, &lang, &lastIndexed); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, apperr.New(apperr.ErrCodeDatabaseOpen, "failed to scan project row", err)
	}
	p.Language = model.Language(lang)
	if lastIndexed.Valid {
		v := lastIndexed.Int64
		p.LastIndexedAt = &v
	}
	return &p, nil
}
