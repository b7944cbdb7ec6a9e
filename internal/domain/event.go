package domain

import "time"

// ChangeEvent is a store change notification delivered to subscribers.
type ChangeEvent struct {
	Kind       ChangeKind `json:"kind"`
	OwnerID    string     `json:"owner_id"`
	ThreadID   string     `json:"thread_id,omitempty"`
	Thread     *Thread    `json:"thread,omitempty"`
	Turn       *Turn      `json:"turn,omitempty"`
	ArtifactID string     `json:"artifact_id,omitempty"`
	Ts         time.Time  `json:"ts"`
}
