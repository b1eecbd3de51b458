// Package docstore reads pre-processed document bundles from disk. Each
// document is a directory under Root named by its id, holding an
// output_tree.json and page images; the matching PDF lives at
// PDFRoot/<id>.pdf.
package docstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dom/document-viewer/internal/domain"
)

const OutputTreeFilename = "output_tree.json"

var imageExtensions = map[string]struct{}{
	".jpeg": {},
	".jpg":  {},
	".png":  {},
}

type Store struct {
	Root    string
	PDFRoot string
}

func New(root, pdfRoot string) *Store {
	return &Store{Root: filepath.Clean(root), PDFRoot: filepath.Clean(pdfRoot)}
}

func (s *Store) dir(id string) (string, error) {
	if err := domain.ValidateDocumentID(id); err != nil {
		return "", err
	}
	return filepath.Join(s.Root, id), nil
}

// ListFolders returns the sorted names of the document directories. Hidden
// directories and the PDF directory, when it sits inside Root, are skipped.
func (s *Store) ListFolders() ([]string, error) {
	entries, err := os.ReadDir(s.Root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("read document root: %w", err)
	}

	folders := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if filepath.Join(s.Root, e.Name()) == s.PDFRoot {
			continue
		}
		folders = append(folders, e.Name())
	}
	sort.Strings(folders)
	return folders, nil
}

func (s *Store) FolderExists(id string) bool {
	dir, err := s.dir(id)
	if err != nil {
		return false
	}
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}

// FolderStats counts the top-level entries of the folder and sums the sizes
// of its regular files.
func (s *Store) FolderStats(id string) (int, int64, error) {
	dir, err := s.dir(id)
	if err != nil {
		return 0, 0, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, 0, fmt.Errorf("read folder %s: %w", id, err)
	}
	var size int64
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		size += info.Size()
	}
	return len(entries), size, nil
}

func (s *Store) HasTree(id string) bool {
	dir, err := s.dir(id)
	if err != nil {
		return false
	}
	info, err := os.Stat(filepath.Join(dir, OutputTreeFilename))
	return err == nil && info.Mode().IsRegular()
}

func (s *Store) ReadTree(id string) (*domain.DocumentTree, error) {
	dir, err := s.dir(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, OutputTreeFilename))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrTreeNotFound
		}
		return nil, fmt.Errorf("read tree %s: %w", id, err)
	}
	var tree domain.DocumentTree
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("decode tree %s: %w", id, err)
	}
	return &tree, nil
}

// ListImages returns the folder's image filenames in lexicographic order.
// A missing folder yields domain.ErrDocumentNotFound.
func (s *Store) ListImages(id string) ([]string, error) {
	dir, err := s.dir(id)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("read folder %s: %w", id, err)
	}

	images := []string{}
	for _, e := range entries {
		if !e.Type().IsRegular() || !IsImage(e.Name()) {
			continue
		}
		images = append(images, e.Name())
	}
	sort.Strings(images)
	return images, nil
}

func IsImage(name string) bool {
	_, ok := imageExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// ImagePath resolves an image inside the document folder. The name must be a
// plain filename with an image extension and the file must exist.
func (s *Store) ImagePath(id, name string) (string, error) {
	dir, err := s.dir(id)
	if err != nil {
		return "", err
	}
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") || strings.ContainsAny(name, `/\`) {
		return "", domain.ErrAssetNotFound
	}
	if !IsImage(name) {
		return "", domain.ErrAssetNotFound
	}
	p := filepath.Join(dir, name)
	info, err := os.Stat(p)
	if err != nil || !info.Mode().IsRegular() {
		return "", domain.ErrAssetNotFound
	}
	return p, nil
}

func (s *Store) PDFPath(id string) (string, error) {
	if err := domain.ValidateDocumentID(id); err != nil {
		return "", err
	}
	return filepath.Join(s.PDFRoot, id+".pdf"), nil
}

func (s *Store) HasPDF(id string) bool {
	p, err := s.PDFPath(id)
	if err != nil {
		return false
	}
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}
