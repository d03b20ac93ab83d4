package request

type CreateHoldRequest struct {
	GroundID string `json:"ground_id" validate:"required,uuid4"`
	Date     string `json:"date" validate:"required,datetime=2006-01-02"`
	Slot     string `json:"slot" validate:"required,slot"`
}

type PlayerDetailsRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Phone       string `json:"phone" validate:"required,min=7,max=20"`
	TeamName    string `json:"team_name" validate:"max=100"`
	PlayerCount int    `json:"player_count" validate:"min=0,max=50"`
	Notes       string `json:"notes" validate:"max=500"`
}

type CreateBookingRequest struct {
	GroundID      string               `json:"ground_id" validate:"required,uuid4"`
	Date          string               `json:"date" validate:"required,datetime=2006-01-02"`
	Slot          string               `json:"slot" validate:"required,slot"`
	PlayerDetails PlayerDetailsRequest `json:"player_details"`
}

// AdminCreateBookingRequest books on behalf of UserID, or the admin when empty.
type AdminCreateBookingRequest struct {
	CreateBookingRequest
	UserID string `json:"user_id" validate:"omitempty,uuid4"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=confirmed cancelled completed no_show"`
	Reason string `json:"reason" validate:"max=255"`
}
