// Package license keeps the device identity and license key used to
// authenticate sync calls. The core never generates credentials; it stores
// what it was given and attaches the matching request headers.
package license

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"runtime"
	"strings"
	"sync"

	"github.com/google/uuid"

	"dukanpos/backend/internal/domain"
	"dukanpos/backend/internal/store"
)

const (
	keyLicenseKey      = "pos_license_key"
	keyDeviceID        = "pos_device_id"
	keyDeviceIDCustom  = "pos_device_id_custom"
	keyDeviceName      = "pos_device_name"
	keyDeviceType      = "pos_device_type"
	keyDeviceSignature = "pos_device_signature"
)

// Signature computes the device signature the authority expects:
// hex(sha256("secret:licenseKey:deviceId")).
func Signature(secret, licenseKey, deviceID string) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s:%s:%s", secret, licenseKey, deviceID))
	return hex.EncodeToString(sum[:])
}

type Manager struct {
	mu sync.Mutex
	kv store.KV
}

func NewManager(kv store.KV) *Manager {
	return &Manager{kv: kv}
}

// DeviceID returns the stable device identity, generating and persisting
// one on first use. A custom override always wins.
func (m *Manager) DeviceID(ctx context.Context) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if override, err := m.kv.GetValue(ctx, keyDeviceIDCustom); err == nil && override != "" {
		return override
	}
	if id, err := m.kv.GetValue(ctx, keyDeviceID); err == nil && id != "" {
		return id
	}
	id := "dev-" + uuid.NewString()
	_ = m.kv.SetValue(ctx, keyDeviceID, id)
	return id
}

func (m *Manager) SetCustomDeviceID(ctx context.Context, id string) {
	id = strings.TrimSpace(id)
	if id == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_ = m.kv.SetValue(ctx, keyDeviceIDCustom, id)
	_ = m.kv.SetValue(ctx, keyDeviceID, id)
}

func (m *Manager) DeviceName(ctx context.Context) string {
	if name, err := m.kv.GetValue(ctx, keyDeviceName); err == nil && name != "" {
		return name
	}
	hostname := defaultDeviceName()
	_ = m.kv.SetValue(ctx, keyDeviceName, hostname)
	return hostname
}

func (m *Manager) SetDeviceName(ctx context.Context, name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		_ = m.kv.DeleteValue(ctx, keyDeviceName)
		return
	}
	_ = m.kv.SetValue(ctx, keyDeviceName, name)
}

func (m *Manager) DeviceType(ctx context.Context) string {
	if kind, err := m.kv.GetValue(ctx, keyDeviceType); err == nil && kind != "" {
		return kind
	}
	kind := defaultDeviceType()
	_ = m.kv.SetValue(ctx, keyDeviceType, kind)
	return kind
}

func (m *Manager) LicenseKey(ctx context.Context) string {
	key, err := m.kv.GetValue(ctx, keyLicenseKey)
	if err != nil {
		return ""
	}
	return key
}

func (m *Manager) SetLicenseKey(ctx context.Context, key string) {
	key = strings.TrimSpace(key)
	if key == "" {
		m.Clear(ctx)
		return
	}
	_ = m.kv.SetValue(ctx, keyLicenseKey, key)
}

func (m *Manager) Clear(ctx context.Context) {
	_ = m.kv.DeleteValue(ctx, keyLicenseKey)
	_ = m.kv.DeleteValue(ctx, keyDeviceSignature)
}

// UpdateFromLicense stores the signature the authority recorded for this
// device after a successful pull; later requests present it instead of the
// one-time registration flag.
func (m *Manager) UpdateFromLicense(ctx context.Context, lic *domain.License) {
	if lic == nil {
		return
	}
	deviceID := m.DeviceID(ctx)
	for _, device := range lic.Devices {
		if device.ID == deviceID && device.Signature != "" {
			_ = m.kv.SetValue(ctx, keyDeviceSignature, device.Signature)
			return
		}
	}
}

// Headers returns the credential headers for sync requests: empty when no
// license key is set. Until the authority has handed back a device
// signature, the registration flag is sent instead.
func (m *Manager) Headers(ctx context.Context) map[string]string {
	key := m.LicenseKey(ctx)
	if key == "" {
		return map[string]string{}
	}
	headers := map[string]string{
		"X-License-Key": key,
		"X-Device-Id":   m.DeviceID(ctx),
		"X-Device-Name": m.DeviceName(ctx),
		"X-Device-Type": m.DeviceType(ctx),
	}
	if sig, err := m.kv.GetValue(ctx, keyDeviceSignature); err == nil && sig != "" {
		headers["X-Device-Signature"] = sig
	} else {
		headers["X-Register-Device"] = "1"
	}
	return headers
}

func defaultDeviceName() string {
	return defaultDeviceType() + " terminal"
}

func defaultDeviceType() string {
	switch runtime.GOOS {
	case "windows":
		return "Windows"
	case "darwin":
		return "Mac"
	case "linux":
		return "Linux"
	default:
		return "Unknown"
	}
}
