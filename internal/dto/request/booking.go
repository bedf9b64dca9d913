package request

type CreateBookingRequest struct {
	DisplayName string `json:"display_name" validate:"required,min=2,max=64"`
	TeamName    string `json:"team_name" validate:"omitempty,max=64"`
	Email       string `json:"email" validate:"omitempty,email"`
	Phone       string `json:"phone" validate:"omitempty,min=6,max=20"`
}
