package shared

// Task types (asynq)
const (
	TypeTrackDownload   = "package:track_download"
	TypeRepairOwnership = "package:repair_ownership"
	TypeSendResetEmail  = "email:reset_password"
)

// Queue names, theo thứ tự ưu tiên
const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

// TrackDownloadPayload: Version ở dạng "1.2.3"
type TrackDownloadPayload struct {
	Key     string `json:"key"`
	Version string `json:"version"`
}

type ResetPasswordPayload struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RepairOwnershipPayload struct{}
