package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"strings"
)

// UnknownDevice is reported when no physical interface is up.
const UnknownDevice = "UNKNOWN-DEVICE"

// GetDeviceID reads the physical MAC address of the machine and hashes it
// so support sees a clean, stable ID like "POS-A1B2C3D4". It names backups
// and is shown on the system status screen.
func GetDeviceID() string {
	interfaces, err := net.Interfaces()
	if err != nil {
		return UnknownDevice
	}
	return deviceIDFrom(interfaces)
}

func deviceIDFrom(interfaces []net.Interface) string {
	var macAddress string
	for _, i := range interfaces {
		// First active interface with a hardware address, loopback excluded
		if i.Flags&net.FlagUp != 0 && i.Flags&net.FlagLoopback == 0 && len(i.HardwareAddr) > 0 {
			macAddress = i.HardwareAddr.String()
			break
		}
	}

	if macAddress == "" {
		return UnknownDevice
	}

	hash := sha256.Sum256([]byte(macAddress + "POS-LEDGER-SALT"))
	return "POS-" + strings.ToUpper(hex.EncodeToString(hash[:])[:8])
}
