// Package models содержит доменные структуры платёжного контура:
// тарифы, платёжные записи, состояние доступа пользователей и снимок
// хранилища целиком. Все даты хранятся в time.Time, опциональные даты —
// через *time.Time (nil означает отсутствие значения).
package models

import "time"

// PaymentStatus статус платёжной записи.
type PaymentStatus string

const (
	// PaymentPending платёж создан и ожидает решения.
	PaymentPending PaymentStatus = "pending"
	// PaymentConfirmed платёж подтверждён, доступ выдан.
	PaymentConfirmed PaymentStatus = "confirmed"
	// PaymentRejected платёж отклонён.
	PaymentRejected PaymentStatus = "rejected"
)

// Tariff описывает покупаемое предложение. Каталог тарифов статичен,
// записи неизменяемы. DurationDays == 0 означает бессрочный доступ.
type Tariff struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Price        int    `json:"price"`
	Description  string `json:"description"`
	DurationDays int    `json:"duration_days"`
}

// PaymentRecord платёжная запись. Создаётся при выборе тарифа,
// меняется ровно один раз (терминальный переход статуса) и никогда
// не удаляется — служит журналом операций.
// Amount копируется из тарифа в момент создания и далее не пересчитывается,
// поэтому изменение цены тарифа не затрагивает уже созданные платежи.
type PaymentRecord struct {
	ID        string        `json:"id"`         // Код транзакции
	UserID    string        `json:"user_id"`    // Внешний идентификатор пользователя
	TariffID  string        `json:"tariff_id"`  // Ссылка на тариф из каталога
	Amount    int           `json:"amount"`     // Цена на момент создания
	Status    PaymentStatus `json:"status"`     // pending / confirmed / rejected
	CreatedAt time.Time     `json:"created_at"` // Момент создания, неизменяем
}

// UserAccess состояние доступа пользователя к закрытому каналу.
// AccessExpiry == nil при HasAccess == true означает бессрочный доступ;
// при HasAccess == false — доступ не выдавался либо отозван без таймера.
type UserAccess struct {
	UserID       string     `json:"user_id"`
	HasAccess    bool       `json:"has_access"`
	TariffID     string     `json:"tariff_id,omitempty"` // Последний выданный тариф
	AccessExpiry *time.Time `json:"access_expiry,omitempty"`
}

// SnapshotVersion текущая версия схемы снимка хранилища.
const SnapshotVersion = 1

// Snapshot снимок хранилища целиком: пользователи по ID и платежи
// по коду транзакции. Загружается и сохраняется атомарно как один документ.
// Неизвестные поля при разборе игнорируются, поэтому добавление полей
// в будущих версиях не ломает чтение старым кодом.
type Snapshot struct {
	Version  int                       `json:"version"`
	Users    map[string]*UserAccess    `json:"users"`
	Payments map[string]*PaymentRecord `json:"payments"`
}

// NewSnapshot возвращает пустой снимок актуальной версии.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Version:  SnapshotVersion,
		Users:    make(map[string]*UserAccess),
		Payments: make(map[string]*PaymentRecord),
	}
}

// Normalize дополняет снимок, прочитанный из старого документа:
// инициализирует отсутствующие отображения и проставляет версию.
func (s *Snapshot) Normalize() {
	if s.Users == nil {
		s.Users = make(map[string]*UserAccess)
	}
	if s.Payments == nil {
		s.Payments = make(map[string]*PaymentRecord)
	}
	if s.Version == 0 {
		s.Version = SnapshotVersion
	}
}

// Clone возвращает глубокую копию платёжной записи.
func (p *PaymentRecord) Clone() *PaymentRecord {
	cp := *p
	return &cp
}

// Clone возвращает глубокую копию состояния доступа.
func (u *UserAccess) Clone() *UserAccess {
	cp := *u
	if u.AccessExpiry != nil {
		expiry := *u.AccessExpiry
		cp.AccessExpiry = &expiry
	}
	return &cp
}
