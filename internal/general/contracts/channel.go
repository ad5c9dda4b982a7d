package contracts

import "strings"

// Channel is a logical pub/sub destination: driver:{id}, customer:{phone} or supervisors.
type Channel string

const (
	driverPrefix   = "driver:"
	customerPrefix = "customer:"

	Supervisors Channel = "supervisors"
)

// DriverChannel is the private channel of one driver.
func DriverChannel(driverID string) Channel {
	return Channel(driverPrefix + driverID)
}

// CustomerChannel is the private channel of one customer phone.
func CustomerChannel(phone string) Channel {
	return Channel(customerPrefix + phone)
}

func (c Channel) String() string {
	return string(c)
}

// RoutingKey maps the channel onto a topic routing key.
func (c Channel) RoutingKey() string {
	switch {
	case strings.HasPrefix(string(c), driverPrefix):
		return RouteDriverPrefix + strings.TrimPrefix(string(c), driverPrefix)
	case strings.HasPrefix(string(c), customerPrefix):
		return RouteCustomerPrefix + strings.TrimPrefix(string(c), customerPrefix)
	default:
		return string(c)
	}
}

// ChannelFromRoutingKey is the inverse of RoutingKey.
func ChannelFromRoutingKey(key string) (Channel, bool) {
	switch {
	case key == RouteSupervisors:
		return Supervisors, true
	case strings.HasPrefix(key, RouteDriverPrefix) && len(key) > len(RouteDriverPrefix):
		return DriverChannel(strings.TrimPrefix(key, RouteDriverPrefix)), true
	case strings.HasPrefix(key, RouteCustomerPrefix) && len(key) > len(RouteCustomerPrefix):
		return CustomerChannel(strings.TrimPrefix(key, RouteCustomerPrefix)), true
	default:
		return "", false
	}
}
