package booking

import (
	"errors"
	"strings"
)

// VehicleType is the kind of vehicle handed to the valet.
type VehicleType string

const (
	VehicleCar  VehicleType = "car"
	VehicleBike VehicleType = "bike"
	VehicleSUV  VehicleType = "suv"
)

var ErrInvalidVehicleType = errors.New("invalid vehicle type")

// ParseVehicleType normalizes and validates a vehicle type.
func ParseVehicleType(in string) (VehicleType, error) {
	vt := VehicleType(strings.ToLower(strings.TrimSpace(in)))
	if vt.Valid() {
		return vt, nil
	}
	return "", ErrInvalidVehicleType
}

func (vt VehicleType) Valid() bool {
	switch vt {
	case VehicleCar, VehicleBike, VehicleSUV:
		return true
	default:
		return false
	}
}

func (vt VehicleType) String() string {
	return string(vt)
}

// Vehicle describes the parked vehicle.
type Vehicle struct {
	Type         VehicleType
	Number       string // registration plate, upper-case
	Model        string
	Color        string
	ImageRefs    []string
	HasValuables bool
	Valuables    []string
}
