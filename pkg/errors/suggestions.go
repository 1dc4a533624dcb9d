package errors

import "fmt"

// SuggestionGenerator generates actionable suggestions based on error category.
type SuggestionGenerator interface {
	Generate(category ErrorCategory, affectedPath string) []string
}

// NewSuggestionGenerator creates a new SuggestionGenerator.
func NewSuggestionGenerator() SuggestionGenerator {
	return &suggestionGenerator{}
}

// suggestionGenerator is the concrete implementation of SuggestionGenerator.
type suggestionGenerator struct{}

// Generate returns actionable suggestions based on the error category and affected path.
func (g *suggestionGenerator) Generate(category ErrorCategory, affectedPath string) []string {
	switch category {
	case CategorySource:
		return g.generateSourceSuggestions(affectedPath)
	case CategoryConfig:
		return g.generateConfigSuggestions()
	case CategoryRemote:
		return g.generateRemoteSuggestions()
	case CategoryPermission:
		return g.generatePermissionSuggestions(affectedPath)
	case CategoryDiskSpace:
		return g.generateDiskSpaceSuggestions(affectedPath)
	case CategoryPath:
		return g.generatePathSuggestions(affectedPath)
	case CategoryDelete:
		return g.generateDeleteSuggestions(affectedPath)
	case CategoryCopy:
		return g.generateCopySuggestions()
	case CategoryUnknown:
		return g.generateUnknownSuggestions(affectedPath)
	default:
		return g.generateUnknownSuggestions(affectedPath)
	}
}

func (g *suggestionGenerator) generateConfigSuggestions() []string {
	return []string{
		"Check that the config file is valid JSON",
		"Make sure destination_root is set and entries is a list",
		"Each entry needs a non-empty name and source",
		"Delete the config file to have a fresh template written on the next run",
	}
}

func (g *suggestionGenerator) generateCopySuggestions() []string {
	return []string{
		"Check if there is sufficient disk space on the destination",
		"Verify the source and destination media are functioning correctly",
		"Try the backup again - this may be a transient I/O error",
	}
}

func (g *suggestionGenerator) generateDeleteSuggestions(path string) []string {
	suggestions := []string{
		"Mirror mode replaces the previous backup; make sure nothing holds it open",
	}

	if path != "" {
		suggestions = append(suggestions, fmt.Sprintf("List contents with 'ls -la %s'", path))
	}

	return append(suggestions, "Switch the entry to copy mode to merge instead of replacing")
}

func (g *suggestionGenerator) generateDiskSpaceSuggestions(path string) []string {
	suggestions := []string{
		"Free up space on the destination device",
		"Check available space with 'df -h'",
	}

	if path != "" {
		suggestions = append(suggestions, "Verify disk usage for the filesystem containing "+path)
	}

	return suggestions
}

func (g *suggestionGenerator) generatePathSuggestions(path string) []string {
	suggestions := []string{
		"Verify the path exists and is spelled correctly",
	}

	if path != "" {
		suggestions = append(suggestions, "Check if the path exists: "+path)
		suggestions = append(suggestions, "Ensure all parent directories exist for "+path)
	} else {
		suggestions = append(suggestions, "Ensure all parent directories exist")
	}

	return suggestions
}

func (g *suggestionGenerator) generatePermissionSuggestions(path string) []string {
	suggestions := []string{
		"Ensure you have read access to the source and write access to the destination",
	}

	if path != "" {
		suggestions = append(suggestions, fmt.Sprintf("Check permissions with 'ls -la %s'", path))
	} else {
		suggestions = append(suggestions, "Check permissions with 'ls -la' on the affected path")
	}

	return suggestions
}

func (g *suggestionGenerator) generateRemoteSuggestions() []string {
	return []string{
		"Connect once with 'ssh' so the server key lands in ~/.ssh/known_hosts",
		"Make sure an ssh-agent is running or a key exists in ~/.ssh",
		"Check that the host and port in the sftp:// destination are reachable",
	}
}

func (g *suggestionGenerator) generateSourceSuggestions(path string) []string {
	suggestions := []string{
		"Check the entry's source path in the config file",
	}

	if path != "" {
		suggestions = append(suggestions, "Check if the path exists: "+path)
	}

	return append(suggestions, "Environment variables and ~ are expanded; make sure they are set")
}

func (g *suggestionGenerator) generateUnknownSuggestions(path string) []string {
	suggestions := []string{
		"Check the error message for more details",
		"Run again with --verbose and look at the log file",
	}

	if path != "" {
		suggestions = append(suggestions, "Verify the path is accessible: "+path)
	}

	return suggestions
}
