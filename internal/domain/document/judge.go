package document

// DefaultJudgeNameLimit caps stored judge names, counted in runes.
const DefaultJudgeNameLimit = 30

// TruncateJudgeName cuts name to at most limit runes. A non-positive limit
// falls back to DefaultJudgeNameLimit.
func TruncateJudgeName(name string, limit int) string {
	if limit <= 0 {
		limit = DefaultJudgeNameLimit
	}
	n := 0
	for i := range name {
		if n == limit {
			return name[:i]
		}
		n++
	}
	return name
}
