// Package output persists generated documents next to their metadata.
package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// DefaultSlug is used when a title has no usable characters.
const DefaultSlug = "untitled"

// maxSlugRunes keeps file names well below common file system limits.
const maxSlugRunes = 100

// Artifact is one generated document.
type Artifact struct {
	Content  string
	Title    string
	Metadata any
}

// Paths locates the files written by Save.
type Paths struct {
	Document string
	Metadata string
}

// Slugify derives a file-system-safe name from title: lower case, path
// hazards and control characters removed, whitespace runs replaced by "_".
func Slugify(title string) string {
	var b strings.Builder
	pendingSeparator := false

	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsSpace(r):
			pendingSeparator = true
		case unicode.IsControl(r), strings.ContainsRune(`<>:"/\|?*`, r):
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '_', r == '.':
			if pendingSeparator && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSeparator = false
			b.WriteRune(r)
		}
	}

	slug := strings.Trim(b.String(), "_.-")
	if runes := []rune(slug); len(runes) > maxSlugRunes {
		slug = strings.TrimRight(string(runes[:maxSlugRunes]), "_.-")
	}
	if slug == "" {
		return DefaultSlug
	}
	return slug
}

// Save writes <slug>.md and <slug>_metadata.json under dir, creating dir
// when needed. Existing files with the same slug are replaced.
func Save(dir string, artifact Artifact) (Paths, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Paths{}, fmt.Errorf("output: create %s: %w", dir, err)
	}

	slug := Slugify(artifact.Title)
	paths := Paths{
		Document: filepath.Join(dir, slug+".md"),
		Metadata: filepath.Join(dir, slug+"_metadata.json"),
	}

	if err := os.WriteFile(paths.Document, []byte(artifact.Content), 0o644); err != nil {
		return Paths{}, fmt.Errorf("output: write %s: %w", paths.Document, err)
	}

	metadata, err := json.MarshalIndent(artifact.Metadata, "", "  ")
	if err != nil {
		return Paths{}, fmt.Errorf("output: encode metadata: %w", err)
	}
	if err := os.WriteFile(paths.Metadata, append(metadata, '\n'), 0o644); err != nil {
		return Paths{}, fmt.Errorf("output: write %s: %w", paths.Metadata, err)
	}

	return paths, nil
}
