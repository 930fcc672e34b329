//go:build !windows

package input

import "rustactions/internal/services"

func newSendInput() (Injector, error) {
	return nil, services.Wrap(services.ErrConfiguration, "input", "init", "sendinput backend requires windows", nil)
}
