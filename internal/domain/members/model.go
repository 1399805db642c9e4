package members

import "time"

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

type Member struct {
	ID        int64     `json:"id"`
	OrgID     int64     `json:"org_id"`
	BranchID  int64     `json:"branch_id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	CardCode  string    `json:"card_code"`
	Gender    Gender    `json:"gender"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}
