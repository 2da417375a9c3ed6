package interpret

import (
	"github.com/signalnine/deskmate/internal/protocol"
)

// OSHeader describes the operating system
type OSHeader struct {
	System         string
	Architecture   string
	Machine        string
	RuntimeVersion string
}

// CPUCard is present only when the backend reported CPU data
type CPUCard struct {
	Processor    string
	Cores        Number
	LogicalCores Number
	FrequencyMHz Number
	UsagePercent Number
}

// RAMCard is present only when the backend reported memory data
type RAMCard struct {
	TotalGB     Number
	UsedGB      Number
	AvailableGB Number
	Percent     Number
}

// StorageCard is present only when the backend reported disk data
type StorageCard struct {
	Drive   string
	TotalGB Number
	UsedGB  Number
	FreeGB  Number
	Percent Number
}

// SystemInfo is the body of a KindSystemInfo unit. When Note is set the
// backend had no detailed telemetry and the cards are all nil.
type SystemInfo struct {
	OS      *OSHeader
	CPU     *CPUCard
	RAM     *RAMCard
	Storage *StorageCard
	Note    string
}

// CardCount returns how many of the CPU, RAM and Storage cards are present.
func (s *SystemInfo) CardCount() int {
	n := 0
	if s.CPU != nil {
		n++
	}
	if s.RAM != nil {
		n++
	}
	if s.Storage != nil {
		n++
	}
	return n
}

func renderSystemInfo(step protocol.Step) Unit {
	// The plugin result nests the telemetry under output.output; older
	// backends send it flat.
	raw := step.Result.Output
	outer := decode[struct {
		Output jsonObject `json:"output"`
	}](raw)
	if outer.Output != nil {
		raw = []byte(outer.Output)
	}
	out := decode[systemPayload](raw)

	info := &SystemInfo{}
	header := OSHeader{
		System:         string(out.System),
		Architecture:   string(out.Architecture),
		Machine:        string(out.Machine),
		RuntimeVersion: firstOf(out.RuntimeVersion, out.PythonVersion),
	}
	if header != (OSHeader{}) {
		info.OS = &header
	}

	if out.Note != "" {
		info.Note = string(out.Note)
	} else {
		if out.CPU != nil {
			cpu := decode[cpuPayload]([]byte(out.CPU))
			info.CPU = &CPUCard{
				Processor:    string(out.Processor),
				Cores:        cpu.Cores,
				LogicalCores: cpu.LogicalCores,
				FrequencyMHz: cpu.FrequencyMHz,
				UsagePercent: cpu.UsagePercent,
			}
		}
		if out.RAM != nil {
			ram := decode[ramPayload]([]byte(out.RAM))
			info.RAM = &RAMCard{
				TotalGB:     ram.TotalGB,
				UsedGB:      ram.UsedGB,
				AvailableGB: ram.AvailableGB,
				Percent:     ram.Percent,
			}
		}
		if out.Storage != nil {
			st := decode[storagePayload]([]byte(out.Storage))
			info.Storage = &StorageCard{
				Drive:   string(st.Drive),
				TotalGB: st.TotalGB,
				UsedGB:  st.UsedGB,
				FreeGB:  st.FreeGB,
				Percent: st.Percent,
			}
		}
	}

	return Unit{
		Kind:   KindSystemInfo,
		Action: step.Action,
		Label:  "System Information",
		System: info,
	}
}

// jsonObject keeps a raw value only when it is a JSON object.
type jsonObject []byte

func (o *jsonObject) UnmarshalJSON(data []byte) error {
	if isObject(data) {
		*o = append((*o)[:0], data...)
	} else {
		*o = nil
	}
	return nil
}
