package testsupport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
)

// LoadFixture loads test data from a fixture file.
// The path is relative to the test package directory.
func LoadFixture(t *testing.T, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to load fixture from %s: %v", path, err)
	}

	return data
}

// LoadFixtureJSON loads JSON test data from a fixture file and unmarshals it.
func LoadFixtureJSON(t *testing.T, path string, dest any) {
	t.Helper()

	data := LoadFixture(t, path)
	if err := json.Unmarshal(data, dest); err != nil {
		t.Fatalf("failed to unmarshal JSON fixture from %s: %v", path, err)
	}
}

// WriteGolden writes test output to a golden file. This should typically only
// be called when updating golden files.
func WriteGolden(t *testing.T, path string, data []byte) {
	t.Helper()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create directory %s: %v", dir, err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write golden file to %s: %v", path, err)
	}
}

// CompareWithGolden compares actual data with the golden file at path,
// creating the golden file from actual when it does not exist yet.
func CompareWithGolden(t *testing.T, path string, actual []byte) {
	t.Helper()

	expected, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		WriteGolden(t, path, actual)
		return
	}
	if err != nil {
		t.Fatalf("failed to load golden file from %s: %v", path, err)
	}

	if string(expected) != string(actual) {
		t.Errorf("output does not match golden file %s\nwant: %s\ngot:  %s", path, expected, actual)
	}
}

// Author is a sample source entity for serializer tests and examples.
type Author struct {
	ID   string
	Name string
}

// CacheKey gives authors a process-independent cache identity.
func (a Author) CacheKey() string { return "author:" + a.ID }

// Article is a sample source entity with a nested author and tags.
type Article struct {
	ID          string
	Title       string
	Description string
	Published   bool
	Author      Author
	Tags        []string
}

// CacheKey gives articles a process-independent cache identity.
func (a Article) CacheKey() string { return "article:" + a.ID }

// NewAuthor builds a sample author with a random ID.
func NewAuthor(name string) Author {
	return Author{ID: uuid.NewString(), Name: name}
}

// NewArticle builds a sample published article with a random ID.
func NewArticle(title string, author Author, tags ...string) Article {
	return Article{
		ID:        uuid.NewString(),
		Title:     title,
		Published: true,
		Author:    author,
		Tags:      tags,
	}
}
