package rabbitmq

// QueueConfig описывает очередь и её ключ маршрутизации.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

const (
	// UserQueue очередь уведомлений пользователям.
	UserQueue = "notice.user"
	// AdminQueue очередь уведомлений администратору.
	AdminQueue = "notice.admin"
	// UserRoutingKey ключ маршрутизации пользовательских уведомлений.
	UserRoutingKey = "user"
	// AdminRoutingKey ключ маршрутизации административных уведомлений.
	AdminRoutingKey = "admin"
)

// GetNoticeQueues возвращает очереди воркера доставки уведомлений.
func GetNoticeQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: UserQueue, RoutingKey: UserRoutingKey},
		{QueueName: AdminQueue, RoutingKey: AdminRoutingKey},
	}
}
