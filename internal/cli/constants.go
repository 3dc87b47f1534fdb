package cli

const (
	// TabWidth is the width of tabs in formatted output.
	TabWidth = 2
	// MaxSummaryLength is the maximum length of an app summary in tables.
	MaxSummaryLength = 50
	// MaxErrorLength is the maximum length of a repository error in tables.
	MaxErrorLength = 40
)
