package clock

import "time"

// Clock abstracts wall time so expiry logic can be driven from tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func System() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now()
}
