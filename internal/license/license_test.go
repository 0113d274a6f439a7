package license

import (
	"context"
	"strings"
	"testing"

	"dukanpos/backend/internal/domain"
	"dukanpos/backend/internal/store/memory"
)

func TestSignature(t *testing.T) {
	got := Signature("secret", "LIC-1", "dev-1")
	if len(got) != 64 {
		t.Fatalf("expected hex sha256, got %q", got)
	}
	if got != Signature("secret", "LIC-1", "dev-1") {
		t.Fatalf("signature must be deterministic")
	}
	if got == Signature("other", "LIC-1", "dev-1") {
		t.Fatalf("signature must depend on the secret")
	}
	if got == Signature("secret", "LIC-1", "dev-2") {
		t.Fatalf("signature must depend on the device id")
	}
}

func TestDeviceID_StableAcrossCalls(t *testing.T) {
	ctx := context.Background()
	manager := NewManager(memory.New())

	first := manager.DeviceID(ctx)
	if !strings.HasPrefix(first, "dev-") {
		t.Fatalf("expected generated device id, got %q", first)
	}
	if second := manager.DeviceID(ctx); second != first {
		t.Fatalf("device id must be stable, got %q then %q", first, second)
	}
}

func TestSetCustomDeviceID_Wins(t *testing.T) {
	ctx := context.Background()
	manager := NewManager(memory.New())

	_ = manager.DeviceID(ctx)
	manager.SetCustomDeviceID(ctx, "till-3")
	if got := manager.DeviceID(ctx); got != "till-3" {
		t.Fatalf("expected custom id to win, got %q", got)
	}
}

func TestHeaders_EmptyWithoutLicenseKey(t *testing.T) {
	ctx := context.Background()
	manager := NewManager(memory.New())

	if headers := manager.Headers(ctx); len(headers) != 0 {
		t.Fatalf("expected no headers without a license key, got %v", headers)
	}
}

func TestHeaders_RegistrationThenSignature(t *testing.T) {
	ctx := context.Background()
	manager := NewManager(memory.New())
	manager.SetLicenseKey(ctx, "LIC-1")

	headers := manager.Headers(ctx)
	if headers["X-License-Key"] != "LIC-1" {
		t.Fatalf("expected license key header, got %v", headers)
	}
	if headers["X-Register-Device"] != "1" {
		t.Fatalf("expected registration flag before a signature exists, got %v", headers)
	}
	if _, ok := headers["X-Device-Signature"]; ok {
		t.Fatalf("signature must not be sent before the authority issued one")
	}

	deviceID := manager.DeviceID(ctx)
	signature := Signature("LIC-1", "LIC-1", deviceID)
	manager.UpdateFromLicense(ctx, &domain.License{
		LicenseKey: "LIC-1",
		Devices:    []domain.Device{{ID: deviceID, Signature: signature}},
	})

	headers = manager.Headers(ctx)
	if headers["X-Device-Signature"] != signature {
		t.Fatalf("expected stored signature header, got %v", headers)
	}
	if _, ok := headers["X-Register-Device"]; ok {
		t.Fatalf("registration flag must disappear once a signature is stored")
	}
}

func TestUpdateFromLicense_IgnoresOtherDevices(t *testing.T) {
	ctx := context.Background()
	manager := NewManager(memory.New())
	manager.SetLicenseKey(ctx, "LIC-1")

	manager.UpdateFromLicense(ctx, &domain.License{
		LicenseKey: "LIC-1",
		Devices:    []domain.Device{{ID: "someone-else", Signature: "sig"}},
	})

	headers := manager.Headers(ctx)
	if _, ok := headers["X-Device-Signature"]; ok {
		t.Fatalf("another device's signature must not be stored")
	}
}

func TestClear_RemovesCredentials(t *testing.T) {
	ctx := context.Background()
	manager := NewManager(memory.New())
	manager.SetLicenseKey(ctx, "LIC-1")

	manager.SetLicenseKey(ctx, "")
	if headers := manager.Headers(ctx); len(headers) != 0 {
		t.Fatalf("expected cleared credentials, got %v", headers)
	}
}
