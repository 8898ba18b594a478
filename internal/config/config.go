// Package config implements the scan configuration file (spec §6): a
// single JSON document with the enumerated ScanConfig options of spec
// §3, unknown fields rejected, falling back to built-in defaults with
// a warning on invalid JSON. Grounded on the teacher's
// internal/config/config.go "always optional, zero value on missing
// file" shape; the format itself is dictated by spec §6 (JSON with
// strict fields), not a library choice — see DESIGN.md.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dchecker/datachecker/internal/scanerr"
)

// Checks holds one enable flag per check named in spec §4.5's fixed
// order.
type Checks struct {
	Duplicates      bool `json:"duplicates"`
	Links           bool `json:"links"`
	Integrity       bool `json:"integrity"`
	Temporary       bool `json:"temporary"`
	Confidential    bool `json:"confidential"`
	Compressed      bool `json:"compressed"`
	DuplicateChars  bool `json:"duplicate_chars"`
	EmptyFiles      bool `json:"empty_files"`
	LargeFiles      bool `json:"large_files"`
	LastAccess      bool `json:"last_access"`
	Legacy          bool `json:"legacy"`
	MagicNumbers    bool `json:"magic_numbers"`
	NoExtension     bool `json:"no_extension"`
	JSONParse       bool `json:"json_parse"`
	WrongDates      bool `json:"wrong_dates"`
	EmptyDirs       bool `json:"empty_dirs"`
	ManyItemsDirs   bool `json:"many_items_dirs"`
	OneItemDirs     bool `json:"one_item_dirs"`
	NameSize        bool `json:"name_size"`
	PathSize        bool `json:"path_size"`
	UnportableChars bool `json:"unportable_chars"`
}

// ScanConfig is the enumerated option set spec §3 defines as input to
// the core.
type ScanConfig struct {
	InputFolder string `json:"input_folder"`

	BufferSize  int  `json:"buffer_size"`
	EnableCache bool `json:"enable_cache"`
	MaxJobs     int  `json:"max_jobs"`

	DuplicateFilesParallel bool `json:"duplicate_files_parallel"`
	IntegrityFilesParallel bool `json:"integrity_files_parallel"`

	Patterns           []string `json:"patterns"`
	PatternBase64Bytes []string `json:"pattern_base64_bytes"`

	LargeFileSize      int64 `json:"large_file_size"`
	LastAccessTime     int64 `json:"last_access_time"`
	MaxItemsDirectory  int   `json:"max_items_directory"`
	MaxDirFileNameSize int   `json:"max_dir_file_name_size"`
	MaxFullPathSize    int   `json:"max_full_path_size"`

	Checks Checks `json:"checks"`
}

// Default returns the built-in ScanConfig every run starts from,
// whether config.json is missing, invalid, or simply silent on a
// field.
func Default() ScanConfig {
	return ScanConfig{
		BufferSize:             1 << 20,
		EnableCache:            true,
		MaxJobs:                0, // resolved to detected CPU count at startup
		DuplicateFilesParallel: true,
		IntegrityFilesParallel: true,
		LargeFileSize:          100 << 20,                    // 100 MiB
		LastAccessTime:         int64(365 * 24 * time.Hour), // 365 days
		MaxItemsDirectory:      10000,
		MaxDirFileNameSize:     255,
		MaxFullPathSize:        4096,
		Checks: Checks{
			Duplicates: true, Links: true, Integrity: true, Temporary: true,
			Confidential: true, Compressed: true, DuplicateChars: true,
			EmptyFiles: true, LargeFiles: true, LastAccess: true, Legacy: true,
			MagicNumbers: true, NoExtension: true, JSONParse: true,
			WrongDates: true, EmptyDirs: true, ManyItemsDirs: true,
			OneItemDirs: true, NameSize: true, PathSize: true, UnportableChars: true,
		},
	}
}

// Path resolves to config.json in the current working directory (spec
// §6: "datachecker config writes a default config.json into the
// current directory").
func Path() string {
	wd, err := os.Getwd()
	if err != nil {
		return "config.json"
	}
	return filepath.Join(wd, "config.json")
}

// Load reads config.json from Path(). A missing file yields
// Default() with a nil error (the caller falls back to showing help
// if InputFolder is then empty, per spec §6). Invalid JSON or an
// unrecognized field yields Default() and a *scanerr.Error of kind
// KindConfigInvalid — the caller's recovery policy is to warn once and
// proceed with defaults (spec §7).
func Load() (ScanConfig, error) {
	path := Path()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return Default(), err
	}

	cfg := Default()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Default(), scanerr.New(scanerr.KindConfigInvalid, path, err)
	}
	return cfg, nil
}

// WriteDefault writes Default() as indented JSON to config.json inside
// dir, refusing if one already exists (spec §6).
func WriteDefault(dir string) error {
	path := filepath.Join(dir, "config.json")
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	} else if !os.IsNotExist(err) {
		return err
	}

	data, err := json.MarshalIndent(Default(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
