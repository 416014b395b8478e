// Package env derives host identity for the link tools.
package env

import (
	"fmt"

	"github.com/denisbrodbeck/machineid"
)

// AppID salts the machine id so the raw id never leaves the host.
const AppID = "multilink"

// MachineID retrieves the app specific ID identifying the machine.
func MachineID() (string, error) {
	id, err := machineid.ProtectedID(AppID)
	if err != nil {
		return "", fmt.Errorf("machine id: %w", err)
	}
	return id, nil
}

// ClientID returns a MQTT client id for a console, unique per host.
// It falls back to the bare name when the machine id is unavailable.
func ClientID(name string) string {
	id, err := MachineID()
	if err != nil {
		return AppID + "-" + name
	}
	if len(id) > 12 {
		id = id[:12]
	}
	return fmt.Sprintf("%s-%s-%s", AppID, id, name)
}
