package dto

type AssignCategoryRequest struct {
	UserID   string `json:"user_id"`
	Category string `json:"category"`
}

type AssignCategoryResponse struct {
	Message string `json:"message"`
}

type AdminUserResponse struct {
	ID         string   `json:"id"`
	Email      string   `json:"email"`
	Role       string   `json:"role"`
	Categories []string `json:"categories"`
}
