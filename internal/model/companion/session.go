package companion

import "time"

// Snapshot is the JSON view of a session served to the browser.
type Snapshot struct {
	ID           string          `json:"id"`
	CreatedAt    time.Time       `json:"createdAt"`
	State        SubmissionState `json:"state"`
	LastError    string          `json:"lastError,omitempty"`
	CameraActive bool            `json:"cameraActive"`
	Vision       *EmotionSample  `json:"vision,omitempty"`
	Turn         *Turn           `json:"turn,omitempty"`
	HistoryTotal int             `json:"historyTotal"`
}
