package host

import (
	"os"

	"github.com/shirou/gopsutil/v3/process"
)

// processRSS returns the resident set size of this process, or 0 when it
// cannot be read.
func processRSS() uint64 {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0
	}
	info, err := proc.MemoryInfo()
	if err != nil || info == nil {
		return 0
	}
	return info.RSS
}
