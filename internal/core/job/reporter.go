package job

// Reporter is the narrow interface handed to long-running tasks for progress
// reporting. *Store satisfies it; tests substitute recording fakes.
type Reporter interface {
	Start(id string)
	UpdateProgress(id string, progress float64, message string)
	Complete(id string, summary map[string]any)
	Fail(id string, errMsg string)
}

var _ Reporter = (*Store)(nil)
