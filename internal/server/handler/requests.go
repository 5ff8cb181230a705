package handler

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// UpdateAttendanceRequest is the authoritative write for one member's flag
// pair on one day. Both booleans are absolute values, not deltas.
type UpdateAttendanceRequest struct {
	StudentID      int64  `json:"studentId" validate:"required,gt=0"`
	AttendanceDate string `json:"attendanceDate" validate:"required"`
	Worship        bool   `json:"worship"`
	Mokjang        bool   `json:"mokjang"`
}

// CreateStudentRequest registers a roster member. Mokjang may be empty;
// the member lands in the unassigned bucket.
type CreateStudentRequest struct {
	Name    string `json:"name" validate:"required,min=1,max=100"`
	Mokjang string `json:"mokjang" validate:"max=100"`
}

// UpdateStudentRequest renames a member or moves them between mokjangs.
// Empty fields are left unchanged.
type UpdateStudentRequest struct {
	Name    string `json:"name" validate:"max=100"`
	Mokjang string `json:"mokjang" validate:"max=100"`
}
