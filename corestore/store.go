// Package corestore implements durable persistence of SectionTree,
// membership logs, and DKG session state, via spf13/afero so tests run
// against an in-memory filesystem and production nodes against the OS
// filesystem, with every write made atomic by write-to-temp-then-rename.
package corestore

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/spf13/afero"

	"github.com/elderlink/corenet/sectiontree"
)

const (
	networkContactsFile = "network_contacts"
	membershipLogDir    = "membership_log"
	dkgStateDir         = "dkg_state"
)

// Store is the node's persistence boundary. A nil Fs (InMemoryStorage mode)
// is replaced with an afero.MemMapFs at construction, so Store is always
// usable without a nil check at call sites.
type Store struct {
	fs   afero.Fs
	root string
}

// New creates a Store rooted at root on fs. Passing an *afero.MemMapFs
// gives the in-memory-storage mode named in section 6's environment
// variables; passing afero.NewOsFs() gives durable disk persistence.
func New(fs afero.Fs, root string) (*Store, error) {
	if fs == nil {
		fs = afero.NewMemMapFs()
	}
	if err := fs.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("corestore: creating data dir %s: %w", root, err)
	}
	return &Store{fs: fs, root: root}, nil
}

// writeAtomic writes data to a temp file in the same directory as path and
// renames it into place, so a crash mid-write never leaves a truncated or
// partially-written file behind.
func (s *Store) writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("corestore: creating %s: %w", dir, err)
	}
	tmp := path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		return fmt.Errorf("corestore: writing %s: %w", tmp, err)
	}
	if err := s.fs.Rename(tmp, path); err != nil {
		return fmt.Errorf("corestore: renaming %s to %s: %w", tmp, path, err)
	}
	return nil
}

// SaveSectionTree atomically persists tree as network_contacts.
func (s *Store) SaveSectionTree(tree *sectiontree.Tree) error {
	data, err := tree.Serialize()
	if err != nil {
		return fmt.Errorf("corestore: serializing section tree: %w", err)
	}
	return s.writeAtomic(filepath.Join(s.root, networkContactsFile), data)
}

// LoadSectionTree reconstructs the SectionTree from network_contacts.
func (s *Store) LoadSectionTree() (*sectiontree.Tree, error) {
	data, err := afero.ReadFile(s.fs, filepath.Join(s.root, networkContactsFile))
	if err != nil {
		return nil, fmt.Errorf("corestore: reading network_contacts: %w", err)
	}
	tree, err := sectiontree.Deserialize(data)
	if err != nil {
		return nil, fmt.Errorf("corestore: decoding network_contacts: %w", err)
	}
	return tree, nil
}

// HasSectionTree reports whether a network_contacts file already exists,
// used by node startup to decide between loading and genesis bootstrap.
func (s *Store) HasSectionTree() bool {
	ok, _ := afero.Exists(s.fs, filepath.Join(s.root, networkContactsFile))
	return ok
}

// AppendMembershipLog writes decided as the append-only record for
// generation; membership_log files are one-shot (a generation is decided
// exactly once), so this also errors if the file already exists.
func (s *Store) AppendMembershipLog(generation uint64, decided []byte) error {
	path := filepath.Join(s.root, membershipLogDir, strconv.FormatUint(generation, 10))
	if ok, _ := afero.Exists(s.fs, path); ok {
		return fmt.Errorf("corestore: membership log for generation %d already exists", generation)
	}
	return s.writeAtomic(path, decided)
}

// ReadMembershipLog returns the decided membership bytes for generation.
func (s *Store) ReadMembershipLog(generation uint64) ([]byte, error) {
	path := filepath.Join(s.root, membershipLogDir, strconv.FormatUint(generation, 10))
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return nil, fmt.Errorf("corestore: reading membership log generation %d: %w", generation, err)
	}
	return data, nil
}

// Generations lists every generation with a persisted membership log, in
// ascending order, used to replay history on restart.
func (s *Store) Generations() ([]uint64, error) {
	dir := filepath.Join(s.root, membershipLogDir)
	entries, err := afero.ReadDir(s.fs, dir)
	if err != nil {
		if _, statErr := s.fs.Stat(dir); statErr != nil {
			return nil, nil // no log directory yet: no generations recorded
		}
		return nil, fmt.Errorf("corestore: listing %s: %w", dir, err)
	}
	out := make([]uint64, 0, len(entries))
	for _, e := range entries {
		gen, err := strconv.ParseUint(e.Name(), 10, 64)
		if err != nil {
			continue
		}
		out = append(out, gen)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// SaveDkgState atomically persists state under the session's recovery file.
func (s *Store) SaveDkgState(sessionID string, state []byte) error {
	return s.writeAtomic(filepath.Join(s.root, dkgStateDir, sessionID), state)
}

// LoadDkgState reads back a session's recovery file.
func (s *Store) LoadDkgState(sessionID string) ([]byte, error) {
	data, err := afero.ReadFile(s.fs, filepath.Join(s.root, dkgStateDir, sessionID))
	if err != nil {
		return nil, fmt.Errorf("corestore: reading dkg state %s: %w", sessionID, err)
	}
	return data, nil
}

// DeleteDkgState removes a session's recovery file once it reaches a
// terminal state (Decided or Failed), so dkg_state/ only ever holds
// in-flight sessions.
func (s *Store) DeleteDkgState(sessionID string) error {
	path := filepath.Join(s.root, dkgStateDir, sessionID)
	if err := s.fs.Remove(path); err != nil {
		return fmt.Errorf("corestore: removing dkg state %s: %w", sessionID, err)
	}
	return nil
}
