package config

import "time"

//go:generate go run github.com/ecordell/optgen -output zz_generated.options.go . Configuration

type Configuration struct {
	Server    Server `debugmap:"visible"`
	Agent     Agent  `debugmap:"visible"`
	Engine    Engine `debugmap:"visible"`
	LogLevel  string `debugmap:"visible" default:"info" validate:"oneof=debug info warn error"`
	LogFormat string `debugmap:"visible" default:"console" validate:"oneof=console json"`
}

type Server struct {
	Enabled    bool   `debugmap:"visible" default:"true"`
	HTTPPort   int    `debugmap:"visible" default:"8000" validate:"min=1,max=65535"`
	ServerMode string `debugmap:"visible" default:"dev" validate:"oneof=dev prod"`
}

type Agent struct {
	// Connections are the libvirt URIs handed to the inspection worker at startup.
	Connections      []string      `debugmap:"visible" default:"[\"qemu:///system\"]" validate:"min=1,dive,required"`
	LibvirtConfigDir string        `debugmap:"visible" default:"/etc/libvirt" validate:"required"`
	DataFolder       string        `debugmap:"visible" default:"/var/lib/guest-inspection-agent"`
	WarmupDelay      time.Duration `debugmap:"visible" default:"15s" validate:"gte=0s"`
	// MachineTimeout bounds a single inspection. Zero means no bound.
	MachineTimeout time.Duration `debugmap:"visible" default:"0s" validate:"gte=0s"`
	Watch          bool          `debugmap:"visible" default:"true"`
}

type Engine struct {
	GuestfishPath string `debugmap:"visible" default:"guestfish" validate:"required"`
}
