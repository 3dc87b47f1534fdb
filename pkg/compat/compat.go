// Package compat decides whether a package version can be installed on a device.
package compat

import (
	"github.com/cperrin88/reposync/pkg/model"
	"github.com/cperrin88/reposync/pkg/platform"
)

// Checker tests manifests against one device profile.
type Checker struct {
	device platform.Device
}

// NewChecker creates a Checker for device. Unset profile fields take the defaults of
// platform.CurrentDevice.
func NewChecker(device platform.Device) *Checker {
	return &Checker{device: device.WithDefaults()}
}

// Device returns the profile the Checker was created with.
func (c *Checker) Device() platform.Device {
	return c.device
}

// IsCompatible reports whether a version with manifest m can be installed. All checks
// must pass; the first failing one decides.
func (c *Checker) IsCompatible(m model.Manifest) bool {
	sdk := c.device.SDKInt
	if sdk < m.MinSdkVersion() {
		return false
	}
	if m.MaxSdkVersion != nil && sdk > *m.MaxSdkVersion {
		return false
	}
	if m.UsesSdk != nil && m.UsesSdk.TargetSdkVersion < MinInstallableTargetSDK(sdk) {
		return false
	}
	if !c.supportsNativeCode(m.NativeCode) {
		return false
	}
	for _, f := range m.Features {
		if !c.device.HasFeature(f.Name) {
			return false
		}
	}
	return true
}

// supportsNativeCode passes packages without native code and otherwise needs one shared ABI.
func (c *Checker) supportsNativeCode(abis []string) bool {
	if len(abis) == 0 {
		return true
	}
	for _, abi := range abis {
		if c.device.SupportsABI(abi) {
			return true
		}
	}
	return false
}

// MinInstallableTargetSDK returns the lowest target SDK the platform at level sdk
// allows to install.
func MinInstallableTargetSDK(sdk int) int {
	switch {
	case sdk >= 35:
		return 24
	case sdk >= 34:
		return 23
	default:
		return 0
	}
}
