package transit

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var ErrInvalidSettings = errors.New("invalid routing settings")

// Settings are the network-wide routing parameters.
// BusWaitTime is in minutes, BusVelocity in km/h.
type Settings struct {
	BusWaitTime int     `json:"bus_wait_time" yaml:"bus_wait_time" validate:"gte=1,lte=1000"`
	BusVelocity float64 `json:"bus_velocity" yaml:"bus_velocity" validate:"gt=0,lte=1000"`
}

var validate = validator.New()

func (s Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	return nil
}

// rideMinutes converts a road distance in meters into riding time in minutes.
func (s Settings) rideMinutes(meters int) float64 {
	return float64(meters) / (s.BusVelocity / 3.6) / 60
}
