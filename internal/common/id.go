package common

import (
	"github.com/google/uuid"
)

// NewTaskID generates a unique task ID with the "task_" prefix
func NewTaskID() string {
	return "task_" + uuid.New().String()
}

// NewJobID generates a unique found job ID with the "job_" prefix
func NewJobID() string {
	return "job_" + uuid.New().String()
}

// NewResumeID generates a unique resume ID with the "resume_" prefix
func NewResumeID() string {
	return "resume_" + uuid.New().String()
}
