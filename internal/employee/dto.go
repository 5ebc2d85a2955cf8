package employee

type CreateEmployeeDTO struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
	RoleID   int    `json:"role_id,omitempty" validate:"omitempty,gte=1"`
}

type updateStatusRequest struct {
	Active bool `json:"active"`
}
