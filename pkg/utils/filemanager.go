// =============================================================================
// TTD Writer - File Manager Utility
// =============================================================================
//
// This module knows the layout of the Keboola data directory:
//
//   <data>/config.json        - writer parameters
//   <data>/in/tables/         - input tables (.csv or .xlsx)
//   <data>/out/tables/        - audit log and clone/put result tables
//
// Input tables follow a fixed naming convention. The file manager reports
// which of the known tables are present; the workflow decides what to do
// with that set. Files with other names are ignored.
//
// =============================================================================

package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// =============================================================================
// TABLE NAMES
// =============================================================================

const (
	TableCreateCampaigns = "create_campaigns"
	TableCreateAdGroups  = "create_adgroups"
	TableUpdateCampaigns = "update_campaigns"
	TableUpdateAdGroups  = "update_adgroups"
	TableCloneCampaigns  = "clone_campaigns"
	TablePutAdGroups     = "put_adgroups"
)

// KnownTables lists every table name the writer acts on.
var KnownTables = []string{
	TableCreateCampaigns,
	TableCreateAdGroups,
	TableUpdateCampaigns,
	TableUpdateAdGroups,
	TableCloneCampaigns,
	TablePutAdGroups,
}

// tableExtensions are tried in order; the first match wins.
var tableExtensions = []string{".csv", ".xlsx"}

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager resolves paths inside one data directory.
type FileManager struct {
	// DataDir is the root of the data directory.
	DataDir string

	// RunID identifies this run. It names the default staging directory.
	RunID string
}

// NewFileManager creates a FileManager for dataDir with a fresh run id.
func NewFileManager(dataDir string) *FileManager {
	return &FileManager{
		DataDir: dataDir,
		RunID:   uuid.NewString(),
	}
}

// InTables returns the input table directory.
func (fm *FileManager) InTables() string {
	return filepath.Join(fm.DataDir, "in", "tables")
}

// OutTables returns the output table directory.
func (fm *FileManager) OutTables() string {
	return filepath.Join(fm.DataDir, "out", "tables")
}

// OutTable returns the path of an output table called name.
func (fm *FileManager) OutTable(name string) string {
	return filepath.Join(fm.OutTables(), name)
}

// StagingDir returns the default, run-scoped staging directory.
func (fm *FileManager) StagingDir() string {
	return filepath.Join(os.TempDir(), "ttd-writer-"+fm.RunID)
}

// EnsureDirectories creates the output directory if it doesn't exist.
func (fm *FileManager) EnsureDirectories() error {
	if err := os.MkdirAll(fm.OutTables(), 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", fm.OutTables(), err)
	}
	return nil
}

// =============================================================================
// TABLE DISCOVERY
// =============================================================================

// DiscoverTables looks for every known table in the input directory.
//
// RETURNS:
//   - A map from table name to file path, holding only the tables found.
//   - An error if the input directory cannot be read.
//
// A missing input directory is reported as an empty set.
func (fm *FileManager) DiscoverTables() (map[string]string, error) {
	entries, err := os.ReadDir(fm.InTables())
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan input directory: %w", err)
	}

	present := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		present[e.Name()] = filepath.Join(fm.InTables(), e.Name())
	}

	found := make(map[string]string)
	for _, table := range KnownTables {
		for _, ext := range tableExtensions {
			if path, ok := present[table+ext]; ok {
				found[table] = path
				break
			}
		}
	}
	return found, nil
}

// InputFiles lists the file names in the input directory, known tables or
// not, sorted. A missing input directory gives an empty list.
func (fm *FileManager) InputFiles() ([]string, error) {
	entries, err := os.ReadDir(fm.InTables())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan input directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// TableNames returns the keys of a discovery result, sorted.
func TableNames(found map[string]string) []string {
	names := make([]string, 0, len(found))
	for name := range found {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// FileExists checks if a file or directory exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// IsRemote reports whether uri names a remote object rather than a local path.
func IsRemote(uri string) bool {
	return strings.Contains(uri, "://") && !strings.HasPrefix(uri, "file://")
}
