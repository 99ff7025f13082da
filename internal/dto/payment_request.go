package dto

type OverrideStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type SweepRequest struct {
	WindowHours int `json:"window_hours" query:"window_hours" validate:"omitempty,gt=0,lte=720"`
	Limit       int `json:"limit" query:"limit" validate:"omitempty,gt=0,lte=1000"`
}

type ItemStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending processing completed cancel"`
}

type RedeemRequest struct {
	Code string `json:"code" validate:"required"`
}
