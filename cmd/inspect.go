package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/docker/go-units"
	"github.com/fatih/color"
	"github.com/jzelinskie/cobrautil/v2"
	"github.com/spf13/cobra"

	v1 "github.com/kubev2v/guest-inspection-agent/api/v1"
	"github.com/kubev2v/guest-inspection-agent/internal/config"
	"github.com/kubev2v/guest-inspection-agent/internal/models"
	"github.com/kubev2v/guest-inspection-agent/pkg/guestfs"
	"github.com/kubev2v/guest-inspection-agent/pkg/inspection"
	"github.com/kubev2v/guest-inspection-agent/pkg/libvirt"
)

const maxPrintedApplications = 20

func NewInspectCommand(cfg *config.Configuration) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "inspect DOMAIN_XML",
		Short: "Inspect a single machine from its libvirt domain definition",
		Args:  cobra.ExactArgs(1),
		PreRunE: cobrautil.CommandStack(
			cobrautil.SyncViperPreRunE(envPrefix),
			presetFlagsPreRunE,
			func(_ *cobra.Command, _ []string) error {
				if output != "text" && output != "json" {
					return fmt.Errorf("invalid output %q: must be text or json", output)
				}
				if cfg.Agent.MachineTimeout < 0 {
					return fmt.Errorf("machine-timeout cannot be negative")
				}
				return nil
			},
		),
		RunE: func(cmd *cobra.Command, args []string) error {
			flush, err := setupLogger(cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}
			defer flush()

			ctx, cancel := newCommandContext(cmd)
			defer cancel()
			if cfg.Agent.MachineTimeout > 0 {
				ctx, cancel = context.WithTimeout(ctx, cfg.Agent.MachineTimeout)
				defer cancel()
			}

			result, err := inspectDomainFile(ctx, args[0], inspection.NewInspector(guestfs.NewEngineFactory(cfg.Engine.GuestfishPath)))
			if err != nil {
				return err
			}

			if output == "json" {
				err = printJSON(cmd.OutOrStdout(), result)
			} else {
				printResult(cmd.OutOrStdout(), result)
			}
			if err != nil {
				return err
			}

			if result.Outcome == models.InspectionOutcomeError {
				return fmt.Errorf("inspection of %s failed: %w", result.MachineID, result.Error)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output format: text or json")
	cmd.Flags().StringVar(&cfg.Engine.GuestfishPath, "guestfish-path", cfg.Engine.GuestfishPath, "Path of the guestfish binary")
	cmd.Flags().DurationVar(&cfg.Agent.MachineTimeout, "machine-timeout", cfg.Agent.MachineTimeout, "Maximum duration of the inspection, 0 for none")

	return cmd
}

// machineInspector is the part of inspection.Inspector used by the command.
type machineInspector interface {
	Inspect(ctx context.Context, conn models.Connection, machine models.Machine) models.InspectionResult
}

// inspectDomainFile inspects the domain defined in path. The record is attributed
// to a test:/// connection over the directory of the file.
func inspectDomainFile(ctx context.Context, path string, inspector machineInspector) (models.InspectionResult, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return models.InspectionResult{}, err
	}

	domain, err := libvirt.ParseDomainFile(abs)
	if err != nil {
		return models.InspectionResult{}, fmt.Errorf("failed to read domain: %w", err)
	}

	dir := filepath.Dir(abs)
	conn, err := libvirt.NewConnection("test://"+filepath.ToSlash(dir), dir)
	if err != nil {
		return models.InspectionResult{}, err
	}

	return inspector.Inspect(ctx, conn, domain), nil
}

func printJSON(w io.Writer, r models.InspectionResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v1.NewInspectionFromModel(r))
}

func printResult(w io.Writer, r models.InspectionResult) {
	bold := color.New(color.Bold)
	label := color.New(color.FgCyan)

	field := func(name, value string) {
		if value == "" {
			return
		}
		_, _ = label.Fprintf(w, "  %-14s", name+":")
		_, _ = fmt.Fprintln(w, value)
	}

	_, _ = bold.Fprintf(w, "%s", r.MachineName)
	_, _ = fmt.Fprintf(w, " (%s)\n", r.MachineID)
	field("outcome", outcomeColor(r.Outcome).Sprint(r.Outcome.Value()))
	field("duration", units.HumanDuration(r.Duration()))

	if r.Error != nil {
		field("error", color.RedString(r.Error.Error()))
	}
	if r.OS != nil {
		field("root", r.Root)
		field("os", fmt.Sprintf("%s %s %d.%d", r.OS.Type, r.OS.Distro, r.OS.MajorVersion, r.OS.MinorVersion))
		field("product", r.OS.ProductName)
		field("variant", r.OS.ProductVariant)
		field("hostname", r.OS.Hostname)
		field("mounted", fmt.Sprintf("%t", r.FilesystemsMounted))
	}
	if len(r.Icon) > 0 {
		field("icon", units.HumanSize(float64(len(r.Icon))))
	}
	if r.Applications != nil {
		field("applications", fmt.Sprintf("%d", len(r.Applications)))
		names := make([]string, 0, min(len(r.Applications), maxPrintedApplications))
		for _, a := range r.Applications[:min(len(r.Applications), maxPrintedApplications)] {
			if a.Version != "" {
				names = append(names, a.Name+" "+a.Version)
				continue
			}
			names = append(names, a.Name)
		}
		if len(r.Applications) > maxPrintedApplications {
			names = append(names, fmt.Sprintf("... %d more", len(r.Applications)-maxPrintedApplications))
		}
		if len(names) > 0 {
			_, _ = fmt.Fprintf(w, "    %s\n", strings.Join(names, "\n    "))
		}
	}
}

func outcomeColor(o models.InspectionOutcome) *color.Color {
	switch o {
	case models.InspectionOutcomeInspected:
		return color.New(color.FgGreen)
	case models.InspectionOutcomeNoOS:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}
