package models

// SelectTariffRequest тело запроса на выбор тарифа пользователем.
type SelectTariffRequest struct {
	UserID   string `json:"user_id" validate:"required"`
	TariffID string `json:"tariff_id" validate:"required"`
}

// ClaimRequest тело запроса «я оплатил».
type ClaimRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

// DecisionRequest решение администратора по платежу.
type DecisionRequest struct {
	Action string `json:"action" validate:"required,oneof=confirm reject"`
}

// GrantRequest тело запроса на прямую выдачу доступа администратором.
type GrantRequest struct {
	TariffID string `json:"tariff_id" validate:"required"`
}

// LoginRequest учётные данные администратора.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Stats агрегированная статистика по пользователям и платежам.
type Stats struct {
	TotalUsers        int            `json:"total_users"`
	ActiveUsers       int            `json:"active_users"`
	ActiveByTariff    map[string]int `json:"active_by_tariff"`
	TotalPayments     int            `json:"total_payments"`
	ConfirmedPayments int            `json:"confirmed_payments"`
	PendingPayments   int            `json:"pending_payments"`
	RejectedPayments  int            `json:"rejected_payments"`
	TotalRevenue      int            `json:"total_revenue"`
}

// Notice сообщение для очереди уведомлений. UserID пуст для уведомлений
// администратору.
type Notice struct {
	UserID  string `json:"user_id,omitempty"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}
