package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/tidewire/tidewire/internal/apperr"
	"github.com/tidewire/tidewire/internal/connectors"
)

const stageRegister = "register-connectors"

// Catalog lists the connectors to register.
type Catalog interface {
	Descriptors() []connectors.Descriptor
}

// Registrar persists connector identities.
type Registrar interface {
	RegisterConnector(ctx context.Context, shortName, canonicalName string) error
}

// RegistrationReport summarizes one pass.
type RegistrationReport struct {
	Total     int
	Succeeded int
	// Conflicts holds one connector conflict error per rejected descriptor.
	Conflicts []error
}

// RegistrationRunner registers every catalogued connector in discovery
// order. Connector conflicts are collected and do not stop the pass; any
// other failure does.
type RegistrationRunner struct {
	Catalog   Catalog
	Registrar Registrar
	Reporter  Reporter
}

func (r *RegistrationRunner) Run(ctx context.Context) (RegistrationReport, error) {
	if r == nil || r.Catalog == nil || r.Registrar == nil {
		return RegistrationReport{}, errors.New("registration runner is not configured")
	}
	reporter := r.Reporter
	if reporter == nil {
		reporter = nopReporter{}
	}

	descriptors := r.Catalog.Descriptors()
	report := RegistrationReport{Total: len(descriptors)}
	total := int64(len(descriptors))
	reporter.Report(Event{Stage: stageRegister, Total: total, Message: "registering connectors"})

	for i, d := range descriptors {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		err := r.Registrar.RegisterConnector(ctx, d.ShortName, d.CanonicalName)
		switch {
		case err == nil:
			report.Succeeded++
			reporter.Report(Event{
				Source:  d.ShortName,
				Stage:   stageRegister,
				Current: int64(i + 1),
				Total:   total,
				Message: fmt.Sprintf("connectors %d/%d", i+1, total),
			})
		case errors.Is(err, apperr.KindConnectorConflict):
			report.Conflicts = append(report.Conflicts, err)
			reporter.Report(Event{Source: d.ShortName, Stage: stageRegister, Current: int64(i + 1), Total: total, Err: err, Message: "connector conflict"})
		default:
			reporter.Report(Event{Source: d.ShortName, Stage: stageRegister, Current: int64(i + 1), Total: total, Err: err})
			return report, err
		}
	}

	reporter.Report(Event{
		Stage:   stageRegister,
		Current: total,
		Total:   total,
		Done:    true,
		Message: "connector registration complete",
	})
	return report, nil
}

// RunOnce implements Runner. Conflicts are returned joined so scheduled
// passes surface them.
func (r *RegistrationRunner) RunOnce(ctx context.Context) error {
	report, err := r.Run(ctx)
	if err != nil {
		return err
	}
	return errors.Join(report.Conflicts...)
}
