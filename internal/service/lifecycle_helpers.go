package service

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/noah-isme/eduwork-api/internal/models"
)

const tracerPrefix = "github.com/noah-isme/eduwork-api/internal/service/"

// labelPolicy detects markup in short labels (titles, group and course names).
var labelPolicy = bluemonday.StrictPolicy()

// plainText is the stored form of free text (submission content,
// instructions, comments, reasons). It is kept verbatim apart from the
// surrounding whitespace; escaping belongs to whoever renders it.
func plainText(value string) string {
	return strings.TrimSpace(value)
}

// cleanLabel trims a label and rejects it when it carries markup instead of
// altering it. field names the label in the error.
func cleanLabel(field, value string) (string, error) {
	label := strings.TrimSpace(value)
	if html.UnescapeString(labelPolicy.Sanitize(label)) != label {
		return "", newError(KindInvalidInput, "%s must not contain markup", field)
	}
	return label, nil
}

// firstDuplicate returns the first identifier listed twice, if any.
func firstDuplicate(ids []uint) (uint, bool) {
	seen := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return id, true
		}
		seen[id] = struct{}{}
	}
	return 0, false
}

// dedupe keeps the first occurrence of every identifier, in order.
func dedupe(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	result := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}

// submitterIDs lists the students owning the target of a submission
// (Assignment and Group preloaded).
func submitterIDs(submission models.Submission) []uint {
	switch {
	case submission.Assignment != nil:
		return []uint{submission.Assignment.StudentID}
	case submission.Group != nil:
		return submission.Group.MemberIDs()
	default:
		return []uint{}
	}
}

// canView reports whether actor may read a submission and its evaluation.
func canView(actor Actor, submission models.Submission) bool {
	return actor.IsStaff() || (actor.IsStudent() && submission.IsSubmitter(actor.ID))
}
