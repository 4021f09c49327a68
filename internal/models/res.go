package models

type ApiResponse struct {
	OK        bool   `json:"ok"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func SuccessResponse(message string) ApiResponse {
	return ApiResponse{
		OK:      true,
		Message: message,
	}
}

func ErrorResponse(err string) ApiResponse {
	return ApiResponse{
		OK:    false,
		Error: err,
	}
}

// PeoplePage is one page of the people listing.
type PeoplePage struct {
	Users       []PublicUser `json:"users"`
	CurrentPage int          `json:"currentPage"`
	TotalPages  int          `json:"totalPages"`
	PerPage     int          `json:"perPage"`
}

// Profile is a user's public card with their posts, newest first.
type Profile struct {
	User        PublicUser `json:"user"`
	Posts       []*Post    `json:"posts"`
	IsFollowing bool       `json:"isFollowing"`
}
