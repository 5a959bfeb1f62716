package generation

import "fmt"

// ValidationError is a malformed or missing outfit composition field. Always
// surfaced to the caller, never auto-fixed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Reason)
}

// DatabaseError wraps a persistence failure. The pipeline never retries these
// internally, retry policy belongs to the caller.
type DatabaseError struct {
	Op  string
	Err error
}

func (e *DatabaseError) Error() string {
	return fmt.Sprintf("database error during %s: %v", e.Op, e.Err)
}

func (e *DatabaseError) Unwrap() error {
	return e.Err
}

// AIProcessingError is a vision analysis failure. The item is left
// unanalyzed rather than guessed.
type AIProcessingError struct {
	ItemID uint
	Err    error
}

func (e *AIProcessingError) Error() string {
	return fmt.Sprintf("ai processing failed for item %v: %v", e.ItemID, e.Err)
}

func (e *AIProcessingError) Unwrap() error {
	return e.Err
}

// OutfitGenerationError is returned when the healing ladder is exhausted or a
// hard validation error stops generation. Carries the full error list and the
// healing log for diagnosis.
type OutfitGenerationError struct {
	Reason     string
	Errors     []string
	HealingLog map[string]interface{}
}

func (e *OutfitGenerationError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("outfit generation failed: %s", e.Reason)
	}
	return fmt.Sprintf("outfit generation failed: %s (%d unresolved errors)", e.Reason, len(e.Errors))
}
