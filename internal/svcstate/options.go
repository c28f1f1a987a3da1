package svcstate

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// GetOption reads the value stored for name/key, trimming the trailing
// newline a shell-friendly writer would leave. ok is false if the option
// has never been set.
func (s *Store) GetOption(name, key string) (value string, ok bool, err error) {
	data, err := os.ReadFile(s.root.OptionFile(name, key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("svcstate: reading option %s/%s: %w", name, key, err)
	}
	return strings.TrimRight(string(data), "\n"), true, nil
}

// SetOption atomically writes value for name/key (temp file + rename, so
// a concurrent reader never observes a partial write).
func (s *Store) SetOption(name, key, value string) error {
	dir := s.root.OptionsDir(name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("svcstate: creating options dir: %w", err)
	}

	path := s.root.OptionFile(name, key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(value+"\n"), 0644); err != nil {
		return fmt.Errorf("svcstate: writing option %s/%s: %w", name, key, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("svcstate: committing option %s/%s: %w", name, key, err)
	}
	return nil
}

// DeleteOption removes the stored value for name/key, if any.
func (s *Store) DeleteOption(name, key string) error {
	err := os.Remove(s.root.OptionFile(name, key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("svcstate: deleting option %s/%s: %w", name, key, err)
	}
	return nil
}

// Options returns every key set for name.
func (s *Store) Options(name string) ([]string, error) {
	entries, err := os.ReadDir(s.root.OptionsDir(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("svcstate: listing options for %s: %w", name, err)
	}
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() || e.Type()&os.ModeSymlink != 0 {
			keys = append(keys, e.Name())
		}
	}
	return keys, nil
}

// ResetOptions removes every stored option for name. Mirrors the
// rc_service_options semantics of "--reset" on an init script invocation.
func (s *Store) ResetOptions(name string) error {
	dir := s.root.OptionsDir(name)
	err := os.RemoveAll(dir)
	if err != nil {
		return fmt.Errorf("svcstate: resetting options for %s: %w", name, err)
	}
	return nil
}
