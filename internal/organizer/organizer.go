package organizer

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"screenshot-organizer/internal/ordering"
)

// prefixLen is the length of the "NN_" prefix written by Apply.
const prefixLen = 3

// FileRecord is a source file and the rank it matched, if any.
type FileRecord struct {
	Name    string
	Rank    int
	Matched bool
}

// RenamedFile pairs an original name with its prefixed name.
type RenamedFile struct {
	OriginalName string `json:"original_name"`
	NewName      string `json:"new_name"`
}

// Plan is the outcome of matching a directory against an order, before any
// file is moved.
type Plan struct {
	Source      string        `json:"source"`
	Destination string        `json:"destination"`
	Files       []RenamedFile `json:"files"`
	Unmatched   []string      `json:"unmatched"`
}

// Result reports what Apply moved. On a partial failure it holds the moves
// that completed before the error.
type Result struct {
	Destination string        `json:"destination"`
	Moved       []RenamedFile `json:"moved"`
	Unmatched   []string      `json:"unmatched"`
}

// Count is the number of files moved.
func (r *Result) Count() int {
	if r == nil {
		return 0
	}
	return len(r.Moved)
}

// UndoResult reports what Undo restored and which names it left alone.
type UndoResult struct {
	Target   string        `json:"target"`
	Restored []RenamedFile `json:"restored"`
	Skipped  []string      `json:"skipped"`
}

// Count is the number of files moved back.
func (r *UndoResult) Count() int {
	if r == nil {
		return 0
	}
	return len(r.Restored)
}

// Progress is reported after each file is moved.
type Progress struct {
	Current int
	Total   int
	File    RenamedFile
}

// ProgressFunc receives batch progress. It may be nil.
type ProgressFunc func(Progress)

// Organizer applies and reverses prefix renames.
type Organizer struct {
	logger *slog.Logger
	move   func(src, dst string) error
}

// New creates an Organizer. A nil logger discards output.
func New(logger *slog.Logger) *Organizer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Organizer{
		logger: logger.With("component", "organizer"),
		move:   MoveFile,
	}
}

// Match assigns each name the rank of the first entry, in rank order, whose
// match key is a substring of the lowercased name.
func Match(names []string, order ordering.Order) []FileRecord {
	records := make([]FileRecord, 0, len(names))
	for _, name := range names {
		lower := strings.ToLower(name)
		record := FileRecord{Name: name}
		for _, entry := range order {
			if entry.MatchKey != "" && strings.Contains(lower, entry.MatchKey) {
				record.Rank = entry.Rank
				record.Matched = true
				break
			}
		}
		records = append(records, record)
	}
	return records
}

// PrefixedName formats the organized name for a 1-based position.
func PrefixedName(position int, name string) string {
	return fmt.Sprintf("%02d_%s", position, name)
}

// OriginalName strips the position prefix. ok is false for names that were
// not produced by Apply: shorter than four characters or without '_' as the
// third character. Characters are runes, not bytes.
func OriginalName(name string) (string, bool) {
	r := []rune(name)
	if len(r) <= prefixLen || r[prefixLen-1] != '_' {
		return "", false
	}
	return string(r[prefixLen:]), true
}

// HasNumericPrefix reports whether name has the strict "NN_x" shape.
func HasNumericPrefix(name string) bool {
	if _, ok := OriginalName(name); !ok {
		return false
	}
	return isDigit(name[0]) && isDigit(name[1])
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// BuildPlan orders names by matched rank and assigns prefixed names.
// Files sharing a rank keep their input order.
func BuildPlan(names []string, order ordering.Order) ([]RenamedFile, []string) {
	records := Match(names, order)

	matched := make([]FileRecord, 0, len(records))
	var unmatched []string
	for _, r := range records {
		if r.Matched {
			matched = append(matched, r)
		} else {
			unmatched = append(unmatched, r.Name)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Rank < matched[j].Rank
	})

	files := make([]RenamedFile, len(matched))
	for i, r := range matched {
		files[i] = RenamedFile{OriginalName: r.Name, NewName: PrefixedName(i+1, r.Name)}
	}
	return files, unmatched
}

// Plan matches the files in source against order without moving anything.
func (o *Organizer) Plan(source, destination string, order ordering.Order) (*Plan, error) {
	if !dirExists(source) {
		return nil, fmt.Errorf("%s: %w", source, ErrSourceNotFound)
	}
	listing, err := ListFiles(source)
	if err != nil {
		return nil, err
	}
	files, unmatched := BuildPlan(Names(listing), order)
	return &Plan{
		Source:      source,
		Destination: destination,
		Files:       files,
		Unmatched:   unmatched,
	}, nil
}

// Apply moves every matched file from source into destination under its
// prefixed name. The destination is created when missing. The first failed
// move aborts the batch; the returned Result still lists completed moves.
func (o *Organizer) Apply(source, destination string, order ordering.Order, progress ProgressFunc) (*Result, error) {
	if !dirExists(source) {
		return nil, fmt.Errorf("%s: %w", source, ErrSourceNotFound)
	}
	if err := os.MkdirAll(destination, 0o755); err != nil {
		return nil, fmt.Errorf("create output folder: %w", err)
	}

	plan, err := o.Plan(source, destination, order)
	if err != nil {
		return nil, err
	}
	o.logger.Info("organizing files",
		"source", source,
		"destination", destination,
		"order_entries", len(order),
		"matched", len(plan.Files),
		"unmatched", len(plan.Unmatched),
	)
	o.logger.Debug("order keys", "keys", order.Keys())

	result := &Result{Destination: destination, Unmatched: plan.Unmatched}
	for i, file := range plan.Files {
		src := filepath.Join(source, file.OriginalName)
		dst := filepath.Join(destination, file.NewName)
		if err := o.move(src, dst); err != nil {
			o.logger.Error("organize aborted", "file", file.OriginalName, "position", i+1, "moved", len(result.Moved), "error", err)
			return result, &MoveError{Position: i + 1, From: src, To: dst, Err: err}
		}
		result.Moved = append(result.Moved, file)
		o.logger.Debug("file organized", "from", file.OriginalName, "to", file.NewName)
		if progress != nil {
			progress(Progress{Current: i + 1, Total: len(plan.Files), File: file})
		}
	}

	o.logger.Info("organize complete", "moved", len(result.Moved), "destination", destination)
	return result, nil
}

// Undo moves every prefixed file in organized back into target with the
// prefix removed. Names that do not carry a prefix are skipped.
func (o *Organizer) Undo(organized, target string, progress ProgressFunc) (*UndoResult, error) {
	if !dirExists(organized) {
		return nil, fmt.Errorf("%s: %w", organized, ErrOrganizedNotFound)
	}
	if !dirExists(target) {
		return nil, fmt.Errorf("%s: %w", target, ErrTargetNotFound)
	}

	listing, err := ListFiles(organized)
	if err != nil {
		return nil, err
	}

	var pending []RenamedFile
	result := &UndoResult{Target: target}
	for _, name := range Names(listing) {
		original, ok := OriginalName(name)
		if !ok {
			result.Skipped = append(result.Skipped, name)
			continue
		}
		pending = append(pending, RenamedFile{OriginalName: original, NewName: name})
	}
	o.logger.Info("undoing organization",
		"organized", organized,
		"target", target,
		"prefixed", len(pending),
		"skipped", len(result.Skipped),
	)

	for i, file := range pending {
		src := filepath.Join(organized, file.NewName)
		dst := filepath.Join(target, file.OriginalName)
		if err := o.move(src, dst); err != nil {
			o.logger.Error("undo aborted", "file", file.NewName, "position", i+1, "restored", len(result.Restored), "error", err)
			return result, &MoveError{Position: i + 1, From: src, To: dst, Err: err}
		}
		result.Restored = append(result.Restored, file)
		o.logger.Debug("file restored", "from", file.NewName, "to", file.OriginalName)
		if progress != nil {
			progress(Progress{Current: i + 1, Total: len(pending), File: file})
		}
	}

	o.logger.Info("undo complete", "restored", len(result.Restored), "target", target)
	return result, nil
}
