package storage

import (
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"sort"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// PatternFile is the persisted view of a pattern: programming, muting, and
// division. Playheads, names, and tempo are engine state and stay out.
type PatternFile struct {
	Tracks    []TrackFile    `json:"tracks"`
	ChokeGrps []ChokeGrpFile `json:"choke_grps"`
	Division  int            `json:"division"`
}

type TrackFile struct {
	Slots      []SlotFile `json:"slots"`
	SamplePath string     `json:"sample_path"`
}

type SlotFile struct {
	Velocity int `json:"velocity"`
}

type ChokeGrpFile struct {
	TrackIDs []int `json:"track_ids"`
}

// SavePattern writes the pattern view into dir. The filename is the pattern
// name with spaces replaced by underscores, suffixed with an 8-hex-char hash
// of the serialized content. An existing file with the same name is a
// collision, never an overwrite.
func SavePattern(dir, name string, pf PatternFile) (string, error) {
	data, err := json.Marshal(pf)
	if err != nil {
		return "", fmt.Errorf("marshal pattern: %w", err)
	}

	h := fnv.New32a()
	h.Write(data)
	fname := fmt.Sprintf("%s-%08x.json", strings.ReplaceAll(name, " ", "_"), h.Sum32())

	full := filepath.Join(dir, fname)
	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return "", fmt.Errorf("pattern file %s already exists", fname)
		}
		return "", fmt.Errorf("create pattern file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return "", fmt.Errorf("write pattern file: %w", err)
	}
	return fname, nil
}

// LoadPattern reads one saved pattern by filename from dir.
func LoadPattern(dir, fname string) (PatternFile, error) {
	var pf PatternFile
	data, err := os.ReadFile(filepath.Join(dir, fname))
	if err != nil {
		return pf, fmt.Errorf("read pattern file: %w", err)
	}
	if err := json.Unmarshal(data, &pf); err != nil {
		return pf, fmt.Errorf("parse pattern file: %w", err)
	}
	return pf, nil
}

// ListPatterns scans the flat patterns directory for saved pattern files.
func ListPatterns(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read patterns dir: %w", err)
	}
	files := []string{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// isSampleFile matches decoder-supported extensions.
func isSampleFile(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".wav")
}

// ListSamples scans the samples directory: top-level sample files plus one
// level of subdirectories treated as kits, recorded as "kit/file.wav".
func ListSamples(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read samples dir: %w", err)
	}
	files := []string{}
	for _, e := range entries {
		if e.IsDir() {
			sub, err := os.ReadDir(filepath.Join(dir, e.Name()))
			if err != nil {
				continue
			}
			for _, s := range sub {
				if !s.IsDir() && isSampleFile(s.Name()) {
					files = append(files, e.Name()+"/"+s.Name())
				}
			}
			continue
		}
		if isSampleFile(e.Name()) {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}
