package device

import (
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/disk"
)

// HostEnumerator confirms the unit's presence in the host's block device
// table. Locked units still expose their virtual config volume, so the
// device-level check works in every mode; the drive-level check additionally
// requires a mounted partition.
type HostEnumerator struct {
	// Attempts and Delay bound the settle loop; enumeration after an unlock
	// can take a few seconds. Zero values fall back to 5 tries at 1s.
	Attempts int
	Delay    time.Duration
}

func (h *HostEnumerator) attempts() int {
	if h.Attempts > 0 {
		return h.Attempts
	}
	return 5
}

func (h *HostEnumerator) delay() time.Duration {
	if h.Delay > 0 {
		return h.Delay
	}
	return time.Second
}

// findBySerial scans the IO counter table for a block device whose serial
// matches.
func findBySerial(serial string) (EnumInfo, bool) {
	counters, err := disk.IOCounters()
	if err != nil {
		logger.Warnf("reading block device table: %v", err)
		return EnumInfo{}, false
	}
	for name, stat := range counters {
		if stat.SerialNumber == "" {
			continue
		}
		if strings.Contains(stat.SerialNumber, serial) || strings.Contains(serial, stat.SerialNumber) {
			return EnumInfo{Serial: stat.SerialNumber, BlockDevice: "/dev/" + name}, true
		}
	}
	return EnumInfo{}, false
}

func hasPartition(blockDevice string) bool {
	parts, err := disk.Partitions(false)
	if err != nil {
		logger.Warnf("reading partition table: %v", err)
		return false
	}
	for _, p := range parts {
		if strings.HasPrefix(p.Device, blockDevice) {
			return true
		}
	}
	return false
}

func (h *HostEnumerator) ConfirmDeviceEnum(serial string) (EnumInfo, bool) {
	for attempt := 0; attempt < h.attempts(); attempt++ {
		if info, ok := findBySerial(serial); ok {
			return info, true
		}
		time.Sleep(h.delay())
	}
	return EnumInfo{}, false
}

func (h *HostEnumerator) ConfirmDriveEnum(serial string) (EnumInfo, bool) {
	for attempt := 0; attempt < h.attempts(); attempt++ {
		if info, ok := findBySerial(serial); ok && hasPartition(info.BlockDevice) {
			return info, true
		}
		time.Sleep(h.delay())
	}
	return EnumInfo{}, false
}
