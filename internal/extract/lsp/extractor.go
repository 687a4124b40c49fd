package lsp

import (
	"context"
	"os"
	"path/filepath"

	"github.com/vimo-dev/akin/internal/apperr"
	"github.com/vimo-dev/akin/internal/model"
)

// ExtractProject drives a fresh language server over every source file in
// root and returns the resulting CodeUnits, fully populated except for
// ProjectID and Embedding (left for the caller's indexing pipeline, which
// knows the project id and owns the embedding-cache decision). extraExcludes
// carries the project's configured paths.exclude patterns (nil when the
// caller has none, e.g. a transient `akin compare`) on top of whatever
// .gitignore files the walk already honors.
//
// A single file timing out or failing to parse is logged by the caller and
// skipped here by returning no units for that file - the pipeline continues
// over the rest of the project.
func ExtractProject(ctx context.Context, root string, lang model.Language, extraExcludes []string, onFileError func(file string, err error)) ([]*model.CodeUnit, error) {
	client, err := Dial(ctx, lang, root)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	files, err := WalkSourceFiles(root, lang, extraExcludes)
	if err != nil {
		return nil, apperr.New(apperr.ErrCodeFileNotFound, "failed to walk project source tree", err)
	}

	var units []*model.CodeUnit
	for _, file := range files {
		fileUnits, err := extractFile(ctx, client, root, file, lang)
		if err != nil {
			if onFileError != nil {
				onFileError(file, err)
			}
			continue
		}
		units = append(units, fileUnits...)
	}
	return units, nil
}

// ExtractFile dials a fresh language server rooted at the given file's
// directory and extracts only that one file's units. Used by transient,
// database-free comparisons (`akin compare`) where spinning up a language
// server for a single file is acceptable and a full project walk is not
// wanted.
func ExtractFile(ctx context.Context, file string, lang model.Language) ([]*model.CodeUnit, error) {
	root := filepath.Dir(file)
	client, err := Dial(ctx, lang, root)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	return extractFile(ctx, client, root, file, lang)
}

func extractFile(ctx context.Context, client *Client, root, file string, lang model.Language) ([]*model.CodeUnit, error) {
	symbols, err := client.DocumentSymbols(ctx, file)
	if err != nil {
		return nil, err
	}
	if len(symbols) == 0 {
		return nil, nil
	}

	source, err := os.ReadFile(file)
	if err != nil {
		return nil, apperr.New(apperr.ErrCodeFileNotFound, "failed to read source file", err).WithDetail("file", file)
	}

	relPath, err := filepath.Rel(root, file)
	if err != nil {
		relPath = file
	}
	relPath = filepath.ToSlash(relPath)

	rawUnits := ExtractUnits(symbols, string(source), lang)

	out := make([]*model.CodeUnit, 0, len(rawUnits))
	for _, u := range rawUnits {
		qname := model.QualifiedName(lang, relPath, u.EnclosingType, u.Name)
		out = append(out, &model.CodeUnit{
			QualifiedName:   qname,
			FilePath:        relPath,
			Kind:            u.Kind,
			RangeStart:      u.StartLine,
			RangeEnd:        u.EndLine,
			SelectionLine:   u.SelectionLine,
			SelectionColumn: u.SelectionColumn,
			Body:            u.Body,
			ContentHash:     model.ContentHash(u.Body),
			StructureHash:   model.StructureHash(u.Body),
		})
	}
	return out, nil
}
