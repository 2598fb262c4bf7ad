// Package dto содержит объекты передачи данных HTTP слоя.
package dto

// RegisterRequest содержит данные для регистрации пользователя.
type RegisterRequest struct {
	Username           string `json:"username"`
	Password           string `json:"password"`
	Email              string `json:"email"`
	AutoRegisterSecret string `json:"auto_register_secret,omitempty"`
}

// RegisterResponse сообщает о принятой регистрации. Регистрационный
// токен клиенту не возвращается: он доставляется только письмом.
type RegisterResponse struct {
	Message string `json:"message"`
}

// LoginRequest содержит данные для получения auth-токена.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse содержит выданный auth-токен.
type LoginResponse struct {
	AuthToken string `json:"auth_token"`
}

// UserProfileResponse содержит данные профиля пользователя.
type UserProfileResponse struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}
