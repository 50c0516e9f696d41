package out

// EncodePool runs archive compression jobs in the background.
type EncodePool interface {
	// SubmitEncode queues compression of src into dst. Failures are logged,
	// never returned.
	SubmitEncode(src, dst string, level int)

	// Wait blocks until every submitted job has finished.
	Wait()
}

// ProcessSupervisor tracks spawned builds until they are joined.
type ProcessSupervisor interface {
	Track(label string, p Process)

	// WaitAll waits on every tracked process that is still running.
	WaitAll()
}
