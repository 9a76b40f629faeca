// Package identity resolves RFID credentials to enrolled identities.
//
// Enrollment lives on disk, created by the separate enrollment tooling:
// one directory per credential under the dataset root, holding the
// reference JPEGs plus a name.txt with the person's display name.
package identity

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"facegate/internal/vision"
)

// ErrUnknownCredential is returned when no enrollment directory exists for
// a credential. An unregistered card is an expected condition, not a fault.
var ErrUnknownCredential = errors.New("unknown credential")

// fallbackName is displayed when an enrollment has no name.txt.
const fallbackName = "Matched"

// Identity is one enrolled person: a credential, a display name and the
// reference images the classifier trains on. Read-only to the device.
type Identity struct {
	CredentialID string
	DisplayName  string
	ImagePaths   []string
	Dir          string
}

// Store reads identities from the enrollment dataset directory.
type Store struct {
	root string
}

func NewStore(root string) *Store {
	return &Store{root: root}
}

// Resolve maps a credential to its enrolled identity. Returns
// ErrUnknownCredential when the credential has no enrollment directory.
func (s *Store) Resolve(credentialID string) (*Identity, error) {
	dir := filepath.Join(s.root, credentialID)
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("credential %q: %w", credentialID, ErrUnknownCredential)
	}
	if err != nil {
		return nil, fmt.Errorf("reading enrollment directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("credential %q: %w", credentialID, ErrUnknownCredential)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing enrollment directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".jpg") {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	return &Identity{
		CredentialID: credentialID,
		DisplayName:  readName(dir),
		ImagePaths:   paths,
		Dir:          dir,
	}, nil
}

// Credentials lists all enrolled credential IDs, sorted.
func (s *Store) Credentials() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("listing dataset root: %w", err)
	}

	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Images loads the identity's enrolled images, converted to grayscale JPEG
// ready for the detector. Unreadable or undecodable files are skipped; the
// recognizer decides whether what remains is enough to train on.
func (id *Identity) Images() [][]byte {
	images := make([][]byte, 0, len(id.ImagePaths))
	for _, path := range id.ImagePaths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		gray, err := vision.Grayscale(data)
		if err != nil {
			continue
		}
		images = append(images, gray)
	}
	return images
}

// readName returns the contents of name.txt, or the fallback when the file
// is missing (the reference behavior for unnamed enrollments).
func readName(dir string) string {
	data, err := os.ReadFile(filepath.Join(dir, "name.txt"))
	if err != nil {
		return fallbackName
	}
	name := strings.TrimSpace(string(data))
	if name == "" {
		return fallbackName
	}
	return name
}
