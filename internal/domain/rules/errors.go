package rules

import "errors"

// ErrInvalidScore is returned when submitted set scores do not form a
// complete best-of-three match.
var ErrInvalidScore = errors.New("invalid score")
