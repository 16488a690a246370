// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ingest loads paper text into a session index: page files are
// split into token-bounded chunks, embedded in document mode, and
// written to the chunk store and vector index.
package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-brain/pkg/types"
)

const (
	metadataDir = "metadata"
	textDir     = "text"
)

// pageBreak separates pages inside a paper's text file.
const pageBreak = "\f"

// LoadPaper reads a paper's metadata from papersDir/metadata/[id].yaml
// and its page text from papersDir/text/[id].txt. Pages are separated
// by form feeds and numbered from 1.
func LoadPaper(papersDir, id string) (types.Paper, error) {
	var p types.Paper

	metaPath := filepath.Join(papersDir, metadataDir, sanitizeID(id)+".yaml")
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return p, fmt.Errorf("reading paper metadata: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("parsing paper metadata %s: %w", metaPath, err)
	}
	if p.ID == "" {
		p.ID = id
	}

	textPath := filepath.Join(papersDir, textDir, sanitizeID(id)+".txt")
	text, err := os.ReadFile(textPath)
	if err != nil {
		return p, fmt.Errorf("reading paper text: %w", err)
	}

	for i, pageText := range strings.Split(string(text), pageBreak) {
		pageText = strings.TrimSpace(pageText)
		if pageText == "" {
			continue
		}
		p.Pages = append(p.Pages, types.Page{Number: i + 1, Text: pageText})
	}
	if len(p.Pages) == 0 {
		return p, fmt.Errorf("paper %s has no page text", id)
	}
	return p, nil
}

// SavePaper writes a paper's metadata to papersDir/metadata/[id].yaml,
// creating the directory if needed. Page text is not written; text
// files come from the external conversion step.
func SavePaper(papersDir string, p types.Paper) error {
	if p.ID == "" {
		return fmt.Errorf("paper has no id")
	}
	dir := filepath.Join(papersDir, metadataDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating metadata directory: %w", err)
	}

	saved := p
	saved.Pages = nil
	data, err := yaml.Marshal(saved)
	if err != nil {
		return fmt.Errorf("encoding paper metadata: %w", err)
	}
	path := filepath.Join(dir, sanitizeID(p.ID)+".yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing paper metadata: %w", err)
	}
	return nil
}

// ListPapers returns the ids of every paper with metadata on disk.
func ListPapers(papersDir string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(papersDir, metadataDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading metadata directory: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(entry.Name(), ".yaml"))
	}
	return ids, nil
}

// sanitizeID makes an id safe as a file name (arXiv ids may contain
// slashes, e.g. "cs/9901002").
func sanitizeID(id string) string {
	return strings.ReplaceAll(id, "/", "_")
}
