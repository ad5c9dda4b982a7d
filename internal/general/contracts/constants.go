package contracts

// Exchanges
const (
	ExchangeEvents        = "valet_events"        // topic: lifecycle events routed by channel
	ExchangeNotifications = "valet_notifications" // direct: SMS / email commands
)

// Queues
const (
	QueueSupervisorEvents = "valet_supervisor_events"
	QueueNotifications    = "valet_notifications"
)

// Routing keys
const (
	RouteDriverPrefix   = "driver."   // {driver_id}
	RouteCustomerPrefix = "customer." // {phone}
	RouteSupervisors    = "supervisors"
	RouteNotifySend     = "notify.send"
)

// Lifecycle event names, as seen by channel subscribers.
const (
	EventNewBooking       = "new-booking"
	EventRecallRequest    = "recall-request"
	EventCarInTransit     = "car-in-transit"
	EventCarArrived       = "car-arrived"
	EventBookingCompleted = "booking-completed"
	EventBookingCancelled = "booking-cancelled"
	EventBookingUpdated   = "booking-updated"
)
