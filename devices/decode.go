package devices

import (
	"strings"

	"github.com/jrsteele09/smartcane-client/api"
	"github.com/jrsteele09/smartcane-client/internal/errors"
)

// DecodeList reads a device list. An empty body is an empty list. Strict
// mode otherwise accepts only a JSON array.
// Lenient mode also accepts {devices|items|data|content: [...]}, {device: {...}}
// and a bare device object; anything else is an empty list.
func DecodeList(resp *api.Response, lenient bool) ([]Device, error) {
	if arr, ok := resp.Array(); ok {
		return toDevices(arr), nil
	}
	if resp.JSON == nil && strings.TrimSpace(resp.Text()) == "" {
		return []Device{}, nil
	}
	if !lenient {
		return nil, errors.Wrapf(errors.ErrUnexpectedShape, "device list is not an array")
	}

	obj, ok := resp.Object()
	if !ok {
		return []Device{}, nil
	}
	for _, key := range []string{"devices", "items", "data", "content"} {
		if arr, ok := obj[key].([]any); ok {
			return toDevices(arr), nil
		}
	}
	if single, ok := obj["device"].(map[string]any); ok {
		return []Device{single}, nil
	}
	if looksLikeDevice(obj) {
		return []Device{obj}, nil
	}
	return []Device{}, nil
}

func toDevices(arr []any) []Device {
	out := make([]Device, 0, len(arr))
	for _, item := range arr {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
			continue
		}
		out = append(out, Device{"value": item})
	}
	return out
}
