package devices

import (
	"encoding/json"
	"sort"

	"github.com/jrsteele09/smartcane-client/internal/utils"
)

// Identifier types a device can be registered by.
const (
	IdentifierDeviceID     = "deviceId"
	IdentifierSerialNumber = "serialNumber"
	IdentifierUUID         = "uuid"
)

var IdentifierTypes = []string{IdentifierDeviceID, IdentifierSerialNumber, IdentifierUUID}

// idKeys is the lookup order for a device's identifier.
var idKeys = []string{"id", IdentifierDeviceID, IdentifierSerialNumber, IdentifierUUID}

// Device is an open JSON object; its schema belongs to the server.
type Device map[string]any

// ID is the first present of id, deviceId, serialNumber, uuid.
func (d Device) ID() string {
	return utils.FirstString(d, idKeys...)
}

// Removable reports whether the device has an identifier to delete it by.
func (d Device) Removable() bool {
	return d.ID() != ""
}

// Keys returns the field names in a stable order for display.
func (d Device) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// looksLikeDevice is used by lenient decoding to accept a bare device object.
func looksLikeDevice(m map[string]any) bool {
	for _, k := range []string{"id", IdentifierDeviceID, IdentifierSerialNumber} {
		if _, ok := m[k]; ok {
			return true
		}
	}
	return false
}

// FormatValue renders a field value for display.
func FormatValue(v any) string {
	if v == nil {
		return "-"
	}
	if s := utils.AsString(v); s != "" {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "-"
	}
	return string(data)
}
