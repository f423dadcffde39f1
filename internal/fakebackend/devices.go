package fakebackend

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

var errDeviceNotFound = errors.New("device not found")

// DeviceRepo stores device bindings as free-form JSON objects.
type DeviceRepo struct {
	devices map[string]map[string]any
	lock    sync.RWMutex
	now     func() time.Time
}

func NewDeviceRepo(now func() time.Time) *DeviceRepo {
	return &DeviceRepo{
		devices: make(map[string]map[string]any),
		now:     now,
	}
}

// Register stores payload bound to userID and returns the stored copy.
func (dr *DeviceRepo) Register(userID string, payload map[string]any) map[string]any {
	d := make(map[string]any, len(payload)+3)
	for k, v := range payload {
		d[k] = v
	}
	d["id"] = uuid.New().String()
	d["userId"] = userID
	d["registeredAt"] = dr.now().UTC().Format(time.RFC3339)

	dr.lock.Lock()
	defer dr.lock.Unlock()
	dr.devices[d["id"].(string)] = d
	return copyMap(d)
}

func (dr *DeviceRepo) Get(id string) (map[string]any, error) {
	dr.lock.RLock()
	defer dr.lock.RUnlock()
	d, ok := dr.devices[id]
	if !ok {
		return nil, errDeviceNotFound
	}
	return copyMap(d), nil
}

// ListByUser returns a user's devices ordered by registration, then id.
func (dr *DeviceRepo) ListByUser(userID string) []map[string]any {
	dr.lock.RLock()
	defer dr.lock.RUnlock()

	list := make([]map[string]any, 0)
	for _, d := range dr.devices {
		if d["userId"] == userID {
			list = append(list, copyMap(d))
		}
	}
	sort.Slice(list, func(i, j int) bool {
		ri, rj := list[i]["registeredAt"].(string), list[j]["registeredAt"].(string)
		if ri != rj {
			return ri < rj
		}
		return list[i]["id"].(string) < list[j]["id"].(string)
	})
	return list
}

func (dr *DeviceRepo) Delete(id string) error {
	dr.lock.Lock()
	defer dr.lock.Unlock()
	if _, ok := dr.devices[id]; !ok {
		return errDeviceNotFound
	}
	delete(dr.devices, id)
	return nil
}

func copyMap(m map[string]any) map[string]any {
	c := make(map[string]any, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
