// Package platform describes the device that package versions are matched against:
// platform SDK level, supported native ABIs and available hardware features.
package platform

import (
	"fmt"
	"runtime"
	"slices"
	"strings"
)

// DefaultSDKInt is the SDK level assumed when none is configured.
const DefaultSDKInt = 34

// FeatureTouchscreen is exempt from feature checks on force-touch devices.
const FeatureTouchscreen = "android.hardware.touchscreen"

// Native ABI names.
const (
	ABIArm64    = "arm64-v8a"
	ABIArmV7    = "armeabi-v7a"
	ABIArm      = "armeabi"
	ABIX86_64   = "x86_64"
	ABIX86      = "x86"
	ABIRiscV64  = "riscv64"
	ABIUnknown  = "unknown"
	archUnknown = "unknown"
)

// Device is the capability profile of the target device.
type Device struct {
	SDKInt     int      `yaml:"sdk_int,omitempty" json:"sdkInt"`
	ABIs       []string `yaml:"abis,omitempty" json:"abis"`
	Features   []string `yaml:"features,omitempty" json:"features,omitempty"`
	ForceTouch bool     `yaml:"force_touch,omitempty" json:"forceTouch,omitempty"`
}

// CurrentDevice returns a profile derived from the running process: the default SDK level
// and the ABIs of runtime.GOARCH.
func CurrentDevice() Device {
	return Device{SDKInt: DefaultSDKInt, ABIs: ABIsForArch(runtime.GOARCH)}
}

// WithDefaults fills an unset SDK level and ABI list from CurrentDevice.
func (d Device) WithDefaults() Device {
	cur := CurrentDevice()
	if d.SDKInt <= 0 {
		d.SDKInt = cur.SDKInt
	}
	if len(d.ABIs) == 0 {
		d.ABIs = cur.ABIs
	}
	d.ABIs = slices.Clone(d.ABIs)
	for i, abi := range d.ABIs {
		d.ABIs[i] = NormalizeABI(abi)
	}
	return d
}

// HasFeature reports whether the device provides name.
func (d Device) HasFeature(name string) bool {
	if d.ForceTouch && name == FeatureTouchscreen {
		return true
	}
	return slices.Contains(d.Features, name)
}

// SupportsABI reports whether abi is in the device ABI list.
func (d Device) SupportsABI(abi string) bool {
	return slices.Contains(d.ABIs, NormalizeABI(abi))
}

// String returns a short description of the profile.
func (d Device) String() string {
	return fmt.Sprintf("sdk%d/%s", d.SDKInt, strings.Join(d.ABIs, ","))
}

// NormalizeArch maps common architecture spellings onto Go architecture names.
func NormalizeArch(arch string) string {
	arch = strings.ToLower(strings.TrimSpace(arch))
	switch arch {
	case "x86_64", "x64":
		return "amd64"
	case "x86", "i386", "i686":
		return "386"
	case "aarch64":
		return "arm64"
	case "":
		return archUnknown
	default:
		return arch
	}
}

// ABIsForArch returns the native ABIs a device with the given architecture can run,
// preferred ABI first.
func ABIsForArch(arch string) []string {
	switch NormalizeArch(arch) {
	case "amd64":
		return []string{ABIX86_64, ABIX86}
	case "386":
		return []string{ABIX86}
	case "arm64":
		return []string{ABIArm64, ABIArmV7, ABIArm}
	case "arm":
		return []string{ABIArmV7, ABIArm}
	case "riscv64":
		return []string{ABIRiscV64}
	default:
		return []string{ABIUnknown}
	}
}

// NormalizeABI lower-cases abi and maps Go architecture names onto the preferred ABI.
func NormalizeABI(abi string) string {
	abi = strings.ToLower(strings.TrimSpace(abi))
	switch abi {
	case "amd64", "x64":
		return ABIX86_64
	case "386", "i386", "i686":
		return ABIX86
	case "arm64", "aarch64":
		return ABIArm64
	case "arm", "armv7":
		return ABIArmV7
	default:
		return abi
	}
}
