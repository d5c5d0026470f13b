package constants

// JobStatus is the canonical status for rows in extract_job.
type JobStatus string

// Stable values (store these exact strings in DB).
const (
	JobStatusQueued  JobStatus = "QUEUED"  // queued for processing
	JobStatusRunning JobStatus = "RUNNING" // in progress
	JobStatusTextOK  JobStatus = "TEXT_OK" // stage 1 completed (page text extracted)
	JobStatusLLMOK   JobStatus = "LLM_OK"  // stage 2 completed (ticket fields extracted)
	JobStatusFailed  JobStatus = "FAILED"  // terminal failure
)

// JobStatuses lists every valid status value for schema validation.
var JobStatuses = []string{
	string(JobStatusQueued),
	string(JobStatusRunning),
	string(JobStatusTextOK),
	string(JobStatusLLMOK),
	string(JobStatusFailed),
}
