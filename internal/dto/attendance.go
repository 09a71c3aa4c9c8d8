package dto

// SubmitAttendanceRequest is the POST /attendance payload.
type SubmitAttendanceRequest struct {
	Date   string `json:"date" validate:"required"`
	Status string `json:"status" validate:"required,attendance_status"`
}

// SubmitAttendanceResponse confirms a recorded submission.
type SubmitAttendanceResponse struct {
	Message  string `json:"message"`
	Username string `json:"username"`
	Date     string `json:"date"`
	Status   string `json:"status"`
}

// AttendanceHistoryEntry is one row of a user's history, newest date first.
type AttendanceHistoryEntry struct {
	Date      string `json:"date"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at,omitempty"`
}
