package admission

import (
	"fmt"
	"strings"
)

// Rule names one admission check.
type Rule string

const (
	RuleTooManyFiles   Rule = "too_many_files"
	RuleFileTooLarge   Rule = "file_too_large"
	RuleTypeNotAllowed Rule = "type_not_allowed"
	RuleEmptyFile      Rule = "empty_file"
)

// Violation is one failed check. Name is empty for batch-level rules.
type Violation struct {
	Rule        Rule   `json:"rule"`
	Name        string `json:"name,omitempty"`
	Limit       int64  `json:"limit,omitempty"`
	Actual      int64  `json:"actual,omitempty"`
	ContentType string `json:"contentType,omitempty"`
}

func (v Violation) String() string {
	switch v.Rule {
	case RuleTooManyFiles:
		if v.Actual == 0 {
			return "no files selected"
		}
		return fmt.Sprintf("too many files: %d selected, at most %d allowed", v.Actual, v.Limit)
	case RuleFileTooLarge:
		return fmt.Sprintf("%s is too large: %d bytes, at most %d allowed", v.Name, v.Actual, v.Limit)
	case RuleTypeNotAllowed:
		return fmt.Sprintf("%s has a type that is not allowed (%s)", v.Name, v.ContentType)
	case RuleEmptyFile:
		return fmt.Sprintf("%s is empty", v.Name)
	default:
		return string(v.Rule)
	}
}

// Error rejects a whole batch. Match it with errors.As.
type Error struct {
	Violations []Violation
}

func (e *Error) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.String())
	}
	return "upload rejected: " + strings.Join(msgs, "; ")
}

// Has reports whether any violation is of rule r.
func (e *Error) Has(r Rule) bool {
	for _, v := range e.Violations {
		if v.Rule == r {
			return true
		}
	}
	return false
}
