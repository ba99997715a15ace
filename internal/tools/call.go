package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"screenshot-organizer/internal/organizer"
)

// Parameter describes one string argument of a tool.
type Parameter struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// Definition describes a tool for clients that discover them.
type Definition struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  []Parameter `json:"parameters"`
}

var definitions = map[string]Definition{
	AnalyzeScreenshot: {
		Name:        AnalyzeScreenshot,
		Description: "Analyze screenshot to extract file organization order.",
		Parameters: []Parameter{
			{Name: "screenshot_path", Description: "Path to screenshot containing organization order", Required: true},
		},
	},
	OrganizeFiles: {
		Name:        OrganizeFiles,
		Description: "Organize files based on the provided order.",
		Parameters: []Parameter{
			{Name: "folder_path", Description: "Path to folder containing files to organize", Required: true},
			{Name: "organization_order", Description: "Order of files extracted from screenshot", Required: true},
			{Name: "output_folder", Description: "Path to output folder for organized files (defaults to the section title)"},
		},
	},
	UndoOrganization: {
		Name:        UndoOrganization,
		Description: "Undo the file organization by moving files back and removing numeric prefixes.",
		Parameters: []Parameter{
			{Name: "organized_folder", Description: "Path to folder containing organized files", Required: true},
			{Name: "source_folder", Description: "Path to original source folder", Required: true},
		},
	},
	ListFiles: {
		Name:        ListFiles,
		Description: "List all files in the specified folder.",
		Parameters: []Parameter{
			{Name: "folder_path", Description: "Path to folder to list files from", Required: true},
		},
	},
}

// Definitions lists the tools sorted by name.
func Definitions() []Definition {
	defs := make([]Definition, 0, len(definitions))
	for _, d := range definitions {
		defs = append(defs, d)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Call dispatches a tool by name. The error is only for requests that name
// an unknown tool or omit a required argument; tool failures are reported in
// the returned string.
func (s *Service) Call(ctx context.Context, name string, args map[string]string, progress organizer.ProgressFunc) (string, error) {
	def, ok := definitions[name]
	if !ok {
		return "", fmt.Errorf("unknown tool %q", name)
	}
	var missing []string
	for _, p := range def.Parameters {
		if p.Required && strings.TrimSpace(args[p.Name]) == "" {
			missing = append(missing, p.Name)
		}
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("%s: missing required arguments: %s", name, strings.Join(missing, ", "))
	}

	switch name {
	case AnalyzeScreenshot:
		return s.AnalyzeScreenshot(ctx, args["screenshot_path"]), nil
	case OrganizeFiles:
		return s.OrganizeFilesWithProgress(ctx, args["folder_path"], args["organization_order"], args["output_folder"], progress), nil
	case UndoOrganization:
		return s.UndoOrganizationWithProgress(ctx, args["organized_folder"], args["source_folder"], progress), nil
	default:
		return s.ListFiles(ctx, args["folder_path"]), nil
	}
}
