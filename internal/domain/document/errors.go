package document

import "errors"

// ErrFormat marks an import document that is malformed: missing or empty
// scores, or a score that is not a pair of finite numbers.
var ErrFormat = errors.New("format error")
