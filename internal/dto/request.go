package dto

type StartSessionRequest struct {
	Email  string `json:"email" validate:"required"`
	Secret string `json:"secret" validate:"required"`
}

type SelectContextRequest struct {
	PreContextToken string `json:"pre_context_token" validate:"required"`
	EventID         uint   `json:"event_id" validate:"required"`
}

type SwitchContextRequest struct {
	EventID uint `json:"event_id" validate:"required"`
}

type RenewRequest struct {
	RenewalToken string `json:"renewal_token" validate:"required"`
}

type VerifyRequest struct {
	ScannedPayload string `json:"scanned_payload" validate:"required"`
	RoomID         uint   `json:"room_id" validate:"required"`
	ActivityID     *uint  `json:"activity_id,omitempty"`
}
