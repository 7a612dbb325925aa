// ABOUTME: Loads eligible corpus documents from a directory tree
// ABOUTME: Creates a missing corpus directory and reports it as a recoverable warning
package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/harper/optimedix/internal/models"
)

// DefaultExtensions are the plain-text formats read from the corpus
var DefaultExtensions = []string{".txt", ".md"}

// Document is one corpus file
type Document struct {
	// Source is the slash-separated path relative to the corpus root
	Source  string
	Path    string
	Content string
	Hash    string
}

// LoadDocuments walks root in lexical order and reads every file with an eligible extension.
// A missing root is created and reported as MissingSourcePathError; a root without
// eligible files is reported as EmptyCorpusError.
func LoadDocuments(root string, extensions []string) ([]Document, error) {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}

	info, err := os.Stat(root)
	if errors.Is(err, fs.ErrNotExist) {
		if err := os.MkdirAll(root, 0755); err != nil {
			return nil, fmt.Errorf("failed to create corpus directory %s: %w", root, err)
		}
		return nil, &models.MissingSourcePathError{Path: root, Created: true}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat corpus %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("corpus path %s is not a directory", root)
	}

	var docs []Document
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !Eligible(path, extensions) {
			return nil
		}
		doc, err := ReadDocument(root, path)
		if err != nil {
			return err
		}
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk corpus %s: %w", root, err)
	}

	if len(docs) == 0 {
		return nil, &models.EmptyCorpusError{Path: root}
	}
	return docs, nil
}

// ReadDocument loads a single file under root
func ReadDocument(root, path string) (Document, error) {
	content, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		return Document{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Document{
		Source:  SourceID(root, path),
		Path:    path,
		Content: string(content),
		Hash:    ContentHash(content),
	}, nil
}

// SourceID names path relative to root; paths outside root keep their base name
func SourceID(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.Base(path)
	}
	return filepath.ToSlash(rel)
}

// ContentHash is the hex SHA-256 of content
func ContentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Eligible reports whether path has one of extensions, ignoring case
func Eligible(path string, extensions []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range extensions {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}
