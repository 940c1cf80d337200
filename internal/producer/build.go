package producer

import (
	"github.com/oszuidwest/signaltone/internal/config"
	"github.com/oszuidwest/signaltone/internal/signals"
)

// LidDeviceName is matched against input device names to find the lid switch.
const LidDeviceName = "Lid"

// Deps holds the collaborators shared by producers built from configuration.
type Deps struct {
	Active *signals.ActiveSet
	Finder Finder
	Listen ListenFunc
	Events Recorder // Optional
}

// FromConfig returns the producers for cfg: the lid switch, each extra input
// device and, when USB ports are configured, the hot-plug monitor.
func FromConfig(cfg *config.Config, deps Deps) []Producer {
	var producers []Producer
	if cfg.Lid != nil {
		producers = append(producers, NewDeviceProducer(LidDeviceName, cfg.LidKey(), deps.Finder, deps.Active, deps.Events))
	}
	for _, in := range cfg.Inputs {
		producers = append(producers, NewDeviceProducer(in.Name, in.Key(), deps.Finder, deps.Active, deps.Events))
	}
	if len(cfg.USB) > 0 {
		producers = append(producers, NewHotplugProducer(cfg.USBPorts(), deps.Listen, deps.Active, deps.Events))
	}
	return producers
}
