package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		sellEventsTotal,
		ordersExpiredTotal,
		usersRegisteredTotal,
		telegramUpdatesTotal,
		telegramRateLimitTriggeredTotal,
	)
}

var (
	// event: enter|move|input_saved|input_rejected|sell_paid|sell_short|cancel|fatal
	sellEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sell_events_total",
			Help: "Scenario executor events by kind.",
		},
		[]string{"event"},
	)

	ordersExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_expired_total",
			Help: "Open orders canceled by the stale-order sweep.",
		},
	)

	usersRegisteredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "users_registered_total",
			Help: "Total number of new users registered.",
		},
	)

	telegramUpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telegram_updates_total",
			Help: "Incoming updates by kind (command name, callback, text).",
		},
		[]string{"kind"},
	)

	telegramRateLimitTriggeredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "telegram_rate_limit_triggered_total",
			Help: "Total number of times users have been rate-limited.",
		},
	)
)

func IncSellEvent(event string) { sellEventsTotal.WithLabelValues(norm(event)).Inc() }

func AddOrdersExpired(n int) { ordersExpiredTotal.Add(float64(n)) }

func IncUsersRegistered() { usersRegisteredTotal.Inc() }

func IncTelegramUpdate(kind string) { telegramUpdatesTotal.WithLabelValues(norm(kind)).Inc() }

func IncTelegramRateLimitTriggered() { telegramRateLimitTriggeredTotal.Inc() }
