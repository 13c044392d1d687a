package worker

// WorkerInfo is the narrow callback surface TankWorker exposes to Plugins via
// Bind, so a plugin set can report non-fatal errors and result metadata as
// they become known during the run — the Go analogue of original_source's
// shared TankInfo key-value store (self.info.get_value(...)) and
// self.core.errors.
type WorkerInfo interface {
	ReportError(msg string)
	SetLunaparkInfo(jobID, url string)
	SetAutostop(a Autostop)
}

// Plugins is the external collaborator that configures, prepares, runs and
// post-processes the actual test — TankCore and its plugin set in
// original_source, out of scope per spec.md §1 ("plugin discovery",
// "the load-generator implementation itself"). TankWorker only calls these
// hook points in the sequence spec.md §4.8 describes.
type Plugins interface {
	// Bind hands the plugin set a reference back to the worker before
	// Configure runs, so it can report errors/result metadata as the run
	// progresses.
	Bind(info WorkerInfo)
	Configure() error
	PrepareTest() error
	Cleanup() error
	StartTest() error
	WaitForFinish() int
	PostProcess(retcode int) int
}
