package svcstate

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strconv"
)

// SetDaemon records rec under name at the lowest index not already in use,
// mirroring the allocation strategy of a free-list: reuse holes left by
// deleted daemons instead of growing the index forever.
func (s *Store) SetDaemon(name string, rec DaemonRecord) (index int, err error) {
	dir := s.root.DaemonsDir(name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("svcstate: creating daemons dir: %w", err)
	}

	used, err := s.daemonIndexes(name)
	if err != nil {
		return 0, err
	}
	index = lowestFreeIndex(used)
	rec.Index = index

	if err := s.writeDaemon(name, rec); err != nil {
		return 0, err
	}
	return index, nil
}

func lowestFreeIndex(used map[int]bool) int {
	for i := 1; ; i++ {
		if !used[i] {
			return i
		}
	}
}

func (s *Store) writeDaemon(name string, rec DaemonRecord) error {
	path := s.root.DaemonFile(name, rec.Index)
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("svcstate: encoding daemon record: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("svcstate: writing daemon record: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("svcstate: committing daemon record: %w", err)
	}
	return nil
}

func (s *Store) daemonIndexes(name string) (map[int]bool, error) {
	entries, err := os.ReadDir(s.root.DaemonsDir(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[int]bool{}, nil
		}
		return nil, fmt.Errorf("svcstate: listing daemons for %s: %w", name, err)
	}
	used := make(map[int]bool, len(entries))
	for _, e := range entries {
		if idx, err := strconv.Atoi(e.Name()); err == nil {
			used[idx] = true
		}
	}
	return used, nil
}

// Daemons lists every daemon record stored for name, ordered by index.
func (s *Store) Daemons(name string) ([]DaemonRecord, error) {
	entries, err := os.ReadDir(s.root.DaemonsDir(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("svcstate: listing daemons for %s: %w", name, err)
	}

	recs := make([]DaemonRecord, 0, len(entries))
	for _, e := range entries {
		idx, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		rec, err := s.readDaemon(name, idx)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Index < recs[j].Index })
	return recs, nil
}

func (s *Store) readDaemon(name string, index int) (DaemonRecord, error) {
	path := s.root.DaemonFile(name, index)
	data, err := os.ReadFile(path)
	if err != nil {
		return DaemonRecord{}, fmt.Errorf("svcstate: reading daemon record %s/%d: %w", name, index, err)
	}
	var rec DaemonRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return DaemonRecord{}, fmt.Errorf("svcstate: decoding daemon record %s/%d: %w", name, index, err)
	}
	rec.Index = index
	return rec, nil
}

// DeleteDaemon removes the first daemon record for name matching the
// given filter (empty fields are wildcards), returning 1 if a record was
// removed or 0 if none matched. A service can register several daemons
// under the same filter (e.g. several workers with no name set); each
// started=false call removes only the first one found, mirroring a
// daemon process reporting its own exit one at a time.
func (s *Store) DeleteDaemon(name, exec, daemonName, pidfile string) (removed int, err error) {
	recs, err := s.Daemons(name)
	if err != nil {
		return 0, err
	}
	for _, rec := range recs {
		if !rec.Matches(exec, daemonName, pidfile) {
			continue
		}
		path := s.root.DaemonFile(name, rec.Index)
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return 0, fmt.Errorf("svcstate: deleting daemon record %s/%d: %w", name, rec.Index, err)
		}
		return 1, nil
	}
	return 0, nil
}

// ClearDaemons removes every daemon record for name.
func (s *Store) ClearDaemons(name string) error {
	if err := os.RemoveAll(s.root.DaemonsDir(name)); err != nil {
		return fmt.Errorf("svcstate: clearing daemons for %s: %w", name, err)
	}
	return nil
}

// HasDaemons reports whether name has any daemon records at all, used to
// decide whether "started" still means anything for a oneshot-style
// service that never registered a daemon.
func (s *Store) HasDaemons(name string) bool {
	entries, err := os.ReadDir(s.root.DaemonsDir(name))
	return err == nil && len(entries) > 0
}
