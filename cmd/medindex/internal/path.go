package internal

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/DreamCats/medindex/internal/config"
	"github.com/DreamCats/medindex/internal/extract"
)

// ResolveInputs expands ingest arguments into book files. With no
// arguments every file under books_dir matching the configured patterns is
// used. A plain argument is looked up in books_dir first, then relative to
// the working directory; a directory expands like books_dir; anything else
// is treated as a glob.
func ResolveInputs(cfg config.IngestConfig, args []string) ([]string, error) {
	if len(args) == 0 {
		info, err := os.Stat(cfg.BooksDir)
		if err != nil || !info.IsDir() {
			return nil, fmt.Errorf("books directory %s not found", cfg.BooksDir)
		}
		return finalize(walkMatches(cfg.BooksDir, cfg.Patterns))
	}

	var out []string
	for _, arg := range args {
		if path, ok := lookup(cfg.BooksDir, arg); ok {
			info, err := os.Stat(path)
			if err != nil {
				return nil, err
			}
			if info.IsDir() {
				matches, err := walkMatches(path, cfg.Patterns)
				if err != nil {
					return nil, err
				}
				out = append(out, matches...)
				continue
			}
			out = append(out, path)
			continue
		}

		matches, err := doublestar.FilepathGlob(arg)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", arg, err)
		}
		if len(matches) == 0 && cfg.BooksDir != "" && !filepath.IsAbs(arg) {
			matches, _ = doublestar.FilepathGlob(filepath.Join(cfg.BooksDir, arg))
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files match %s", arg)
		}
		out = append(out, matches...)
	}
	return finalize(out, nil)
}

func lookup(booksDir, arg string) (string, bool) {
	if booksDir != "" && !filepath.IsAbs(arg) {
		candidate := filepath.Join(booksDir, arg)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
	}
	if _, err := os.Stat(arg); err == nil {
		return arg, true
	}
	return "", false
}

func walkMatches(root string, patterns []string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		for _, pattern := range patterns {
			if ok, _ := doublestar.Match(pattern, rel); ok {
				out = append(out, path)
				break
			}
		}
		return nil
	})
	return out, err
}

// finalize keeps supported, existing files once each, sorted.
func finalize(paths []string, err error) ([]string, error) {
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		clean := filepath.Clean(p)
		if seen[clean] || !extract.SupportedExt(clean) {
			continue
		}
		if info, err := os.Stat(clean); err != nil || info.IsDir() {
			continue
		}
		seen[clean] = true
		out = append(out, clean)
	}
	sort.Strings(out)
	if len(out) == 0 {
		return nil, fmt.Errorf("no .pdf, .txt or .md files found")
	}
	return out, nil
}
