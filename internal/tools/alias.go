package tools

import "strings"

// aliasTable maps alternate spellings onto the canonical tool name a handler
// was registered under. Model families habitually name the same tool
// differently (a shell tool might arrive as "shell", "sh", or "terminal"),
// so calls are resolved through this table before the registry lookup.
var aliasTable = map[string]string{
	"shell":            "bash",
	"sh":               "bash",
	"terminal":         "bash",
	"edit_patch":       "edit",
	"dir":              "ls",
	"workspace_list":   "ls",
	"list_dir":         "ls",
	"file_search":      "glob",
	"find":             "glob",
	"search":           "grep",
	"ripgrep":          "grep",
	"web_search":       "websearch",
	"web_fetch":        "webfetch",
	"fetch":            "webfetch",
	"write_file":       "write",
	"read_file":        "read",
}

// resolveAlias returns the canonical tool name for name, or name unchanged
// if it has no alias entry.
func resolveAlias(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	if canonical, ok := aliasTable[key]; ok {
		return canonical
	}
	return name
}
