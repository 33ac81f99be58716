package request

// CreateGuestRequest is the request body for creating a guest player
type CreateGuestRequest struct {
	DisplayName string `json:"display_name"`
}

// RegisterRequest is the request body for registering a player
type RegisterRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

// LoginRequest is the request body for logging in
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// CreateLobbyRequest is the request body for creating a lobby. Code is
// optional; one is generated when absent.
type CreateLobbyRequest struct {
	Code string `json:"code,omitempty"`
}

// AddAdminRequest is the request body for granting admin rights
type AddAdminRequest struct {
	PlayerID string `json:"player_id"`
}
