package notification

import "strings"

// jobKeySeparator joins the task and device halves of a notification job ID.
// Task IDs are uuid-minted and therefore can never contain it; callers
// supplying identifiers from elsewhere must uphold the same invariant, the
// keyer does not validate it.
const jobKeySeparator = ":notification:"

// JobID derives the stable identity of the reminder job for one
// (task, device) pair.
func JobID(taskID, deviceID string) string {
	return taskID + jobKeySeparator + deviceID
}

// TaskIDFromJobID returns the task half of a notification job ID: everything
// before the first separator occurrence. IDs without a separator are returned
// unchanged.
func TaskIDFromJobID(jobID string) string {
	if i := strings.Index(jobID, jobKeySeparator); i >= 0 {
		return jobID[:i]
	}
	return jobID
}
