package types

type ApiResponse struct {
	Message string      `json:"message"`
	Status  int         `json:"status"`
	Token   string      `json:"token,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// CursorPage is the envelope for cursor-paginated lists.
type CursorPage struct {
	Items      interface{} `json:"items"`
	NextCursor *string     `json:"nextCursor"`
}

// Page is the envelope for page-number lists.
type Page struct {
	Items      interface{} `json:"items"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int         `json:"totalPages"`
}

// SuccessResult is returned by mutations that have nothing else to report.
type SuccessResult struct {
	Success bool `json:"success"`
}
