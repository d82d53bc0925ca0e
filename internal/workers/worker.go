package workers

// Worker is a background job owned by the Manager.
type Worker interface {
	// Start schedules the job and returns without blocking.
	Start() error

	// Stop blocks until in-flight runs finish.
	Stop()

	Name() string
}
