package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/kubev2v/guest-inspection-agent/internal/config"
	"github.com/kubev2v/guest-inspection-agent/pkg/libvirt"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func validateConfiguration(cfg *config.Configuration) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, validationMessage(fe))
		}
		return errors.New(strings.Join(msgs, "; "))
	}

	for _, uri := range cfg.Agent.Connections {
		if _, err := libvirt.ParseURI(uri); err != nil {
			return fmt.Errorf("invalid connection %q: %w", uri, err)
		}
	}

	return nil
}

func validationMessage(fe validator.FieldError) string {
	switch {
	case fe.StructField() == "HTTPPort":
		return fmt.Sprintf("invalid http-port %v: must be between 1 and 65535", fe.Value())
	case fe.StructField() == "ServerMode":
		return fmt.Sprintf("invalid server mode %q: must be dev or prod", fe.Value())
	case fe.StructField() == "LogLevel":
		return fmt.Sprintf("invalid log level %q", fe.Value())
	case fe.StructField() == "LogFormat":
		return fmt.Sprintf("invalid log format %q: must be console or json", fe.Value())
	case fe.StructField() == "Connections":
		return "at least one connection is required"
	case strings.HasPrefix(fe.StructField(), "Connections["):
		return "connection cannot be empty"
	case fe.StructField() == "LibvirtConfigDir":
		return "libvirt-config-dir cannot be empty"
	case fe.StructField() == "WarmupDelay":
		return "warmup-delay cannot be negative"
	case fe.StructField() == "MachineTimeout":
		return "machine-timeout cannot be negative"
	case fe.StructField() == "GuestfishPath":
		return "guestfish-path cannot be empty"
	default:
		return fe.Error()
	}
}
