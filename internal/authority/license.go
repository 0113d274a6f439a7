package authority

import (
	"context"

	"dukanpos/backend/internal/domain"
	"dukanpos/backend/internal/license"
)

// unlimitedDevices reports whether the license has no device cap. The legacy
// license generator wrote 9 as its "unlimited" marker; newer licenses use a
// large sentinel.
func unlimitedDevices(maxDevices int) bool {
	return maxDevices == 9 || maxDevices >= 999999
}

// DeviceIdentity is the credential set extracted from a sync request.
type DeviceIdentity struct {
	LicenseKey string
	DeviceID   string
	DeviceName string
	DeviceType string
	Signature  string
	Register   bool
}

// AssertLicense validates the caller's license and device registration,
// registering or refreshing the device as a side effect. On success it
// returns the license including the caller's device signature.
func AssertLicense(ctx context.Context, store Store, identity DeviceIdentity) (*domain.License, error) {
	if identity.LicenseKey == "" || identity.DeviceID == "" {
		return nil, ErrLicenseRequired
	}

	lic, err := store.GetLicense(ctx, identity.LicenseKey)
	if err != nil {
		if err == ErrNotFound {
			return nil, ErrLicenseInvalid
		}
		return nil, err
	}
	if lic.Status == domain.LicenseStatusBlocked {
		return nil, ErrLicenseBlocked
	}

	secret := lic.SignatureSecret
	if secret == "" {
		secret = lic.LicenseKey
	}
	expected := license.Signature(secret, lic.LicenseKey, identity.DeviceID)

	idx := -1
	for i, device := range lic.Devices {
		if device.ID == identity.DeviceID {
			idx = i
			break
		}
	}

	switch {
	case identity.Signature != "":
		if identity.Signature != expected || idx < 0 {
			return nil, ErrDeviceRejected
		}
		if refreshDevice(&lic.Devices[idx], identity, expected) {
			if err := store.SaveLicense(ctx, *lic); err != nil {
				return nil, err
			}
		}
	case identity.Register:
		if idx >= 0 {
			if refreshDevice(&lic.Devices[idx], identity, expected) {
				if err := store.SaveLicense(ctx, *lic); err != nil {
					return nil, err
				}
			}
			break
		}
		if !unlimitedDevices(lic.MaxDevices) && len(lic.Devices) >= lic.MaxDevices {
			return nil, ErrDeviceLimit
		}
		lic.Devices = append(lic.Devices, domain.Device{
			ID:        identity.DeviceID,
			Name:      identity.DeviceName,
			Type:      identity.DeviceType,
			Signature: expected,
		})
		if err := store.SaveLicense(ctx, *lic); err != nil {
			return nil, err
		}
	default:
		return nil, ErrDeviceRejected
	}

	return lic, nil
}

// refreshDevice updates a registered device's metadata in place and reports
// whether anything changed.
func refreshDevice(device *domain.Device, identity DeviceIdentity, signature string) bool {
	changed := false
	if identity.DeviceName != "" && device.Name != identity.DeviceName {
		device.Name = identity.DeviceName
		changed = true
	}
	if identity.DeviceType != "" && device.Type != identity.DeviceType {
		device.Type = identity.DeviceType
		changed = true
	}
	if device.Signature != signature {
		device.Signature = signature
		changed = true
	}
	return changed
}

// RemoveDevice deregisters a device from the license.
func RemoveDevice(ctx context.Context, store Store, lic *domain.License, deviceID string) error {
	kept := make([]domain.Device, 0, len(lic.Devices))
	removed := false
	for _, device := range lic.Devices {
		if device.ID == deviceID {
			removed = true
			continue
		}
		kept = append(kept, device)
	}
	if !removed {
		return ErrNotFound
	}
	lic.Devices = kept
	return store.SaveLicense(ctx, *lic)
}
