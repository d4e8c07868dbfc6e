package cache

const (
	keyPrefix = "exam-attempt:"

	// PublishedExamsKey holds the list of Published exams. Window filtering is
	// never cached since it depends on the request time.
	PublishedExamsKey = keyPrefix + "exams:published"
	ExamKeyPattern    = keyPrefix + "exams:*"
)
