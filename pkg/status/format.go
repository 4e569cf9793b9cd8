package status

import (
	"fmt"
)

// Formatter defines how folder outcomes and progress are phrased in the log
type Formatter interface {
	// FormatOutcome formats a folder outcome message
	FormatOutcome(o FolderOutcome) string

	// FormatProgress formats a progress message
	FormatProgress(current, total int) string

	// FormatError formats an error message
	FormatError(err error) string
}

// DefaultFormatter provides a default implementation of Formatter
type DefaultFormatter struct{}

// NewDefaultFormatter creates a new DefaultFormatter
func NewDefaultFormatter() *DefaultFormatter {
	return &DefaultFormatter{}
}

// FormatOutcome formats a folder outcome with emojis
func (f *DefaultFormatter) FormatOutcome(o FolderOutcome) string {
	switch o.Status {
	case StatusEligible:
		return fmt.Sprintf("📋 Eligible %s", o.Folder)
	case StatusSkipped:
		return fmt.Sprintf("👍 Already processed %s", o.Folder)
	case StatusTransferred:
		if o.Deleted {
			return fmt.Sprintf("✨ Transferred and deleted %s", o.Folder)
		}
		return fmt.Sprintf("✨ Transferred %s", o.Folder)
	case StatusFailed:
		return fmt.Sprintf("❌ Failed %s", o.Folder)
	case StatusDeleteFailed:
		return fmt.Sprintf("⚠️  Transferred %s but could not delete the source", o.Folder)
	case StatusPendingDeleted:
		return fmt.Sprintf("🗑️  Deleted previously transferred %s", o.Folder)
	case StatusDryRun:
		return fmt.Sprintf("🔍 Would transfer %s", o.Folder)
	default:
		return fmt.Sprintf("❔ %s", o.Folder)
	}
}

// FormatProgress formats a progress message with percentage
func (f *DefaultFormatter) FormatProgress(current, total int) string {
	var percentage float64
	if total == 0 {
		percentage = 0
		if current > 0 {
			percentage = 100
		}
	} else {
		percentage = float64(current) / float64(total) * 100
	}

	if current >= total {
		return fmt.Sprintf("✅ Progress: %d/%d (%.0f%%)", current, total, percentage)
	}
	return fmt.Sprintf("⏳ Progress: %d/%d (%.0f%%)", current, total, percentage)
}

// FormatError formats an error message with emoji
func (f *DefaultFormatter) FormatError(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("❌ Error: %v", err)
}
