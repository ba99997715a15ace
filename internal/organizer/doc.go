// Package organizer ranks the files of a flat directory against a parsed
// organization order and renames them into a destination directory with a
// two-digit position prefix ("01_name.ext"). Undo strips the prefix and moves
// the files back.
//
// Matching is greedy: a file takes the rank of the first match key (lowest
// rank first) that appears as a substring of its lowercased name. Rank order
// is priority order, not specificity order, so with keys "report" and
// "report draft" the file "report_draft.pdf" matches "report". This is a known
// limitation for overlapping titles.
//
// Batches are not transactional. A failed move aborts the batch and files
// already moved stay where they are. Callers must not run Apply or Undo
// concurrently on overlapping directories.
package organizer
