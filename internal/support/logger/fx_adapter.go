package logger

import (
	"strings"

	"go.uber.org/fx/fxevent"
)

// FxLoggerAdapter routes Fx lifecycle events through the pipeline logger.
type FxLoggerAdapter struct{}

// NewFxLoggerAdapter creates a new instance of FxLoggerAdapter.
func NewFxLoggerAdapter() fxevent.Logger {
	return &FxLoggerAdapter{}
}

// LogEvent logs events from Fx.
func (l *FxLoggerAdapter) LogEvent(event fxevent.Event) {
	switch e := event.(type) {
	case *fxevent.OnStartExecuting:
		Debugf("OnStart hook executing: %s", trimAnonymousSuffix(e.FunctionName))
	case *fxevent.OnStartExecuted:
		if e.Err != nil {
			Errorf("OnStart hook failed: %s, error: %v", trimAnonymousSuffix(e.FunctionName), e.Err)
		} else {
			Debugf("OnStart hook executed: %s", trimAnonymousSuffix(e.FunctionName))
		}
	case *fxevent.OnStopExecuting:
		Debugf("OnStop hook executing: %s", trimAnonymousSuffix(e.FunctionName))
	case *fxevent.OnStopExecuted:
		if e.Err != nil {
			Errorf("OnStop hook failed: %s, error: %v", trimAnonymousSuffix(e.FunctionName), e.Err)
		} else {
			Debugf("OnStop hook executed: %s", trimAnonymousSuffix(e.FunctionName))
		}
	case *fxevent.Supplied:
		if e.Err != nil {
			Errorf("Supplied failed: %v", e.Err)
		} else {
			Debugf("Supplied: %s", e.TypeName)
		}
	case *fxevent.Provided:
		for _, rtype := range e.OutputTypeNames {
			Debugf("Provided: %s", rtype)
		}
		if e.Err != nil {
			Errorf("Provide error: %v", e.Err)
		}
	case *fxevent.Invoking:
		Debugf("Invoking: %s", trimAnonymousSuffix(e.FunctionName))
	case *fxevent.Invoked:
		if e.Err != nil {
			Errorf("Invoke failed: %s, error: %v", e.FunctionName, e.Err)
		}
	case *fxevent.Stopping:
		Debugf("Stopping signal received: %s", e.Signal)
	case *fxevent.Stopped:
		if e.Err != nil {
			Errorf("Stop failed, error: %v", e.Err)
		}
	case *fxevent.RollingBack:
		Errorf("Start failed, rolling back, error: %v", e.StartErr)
	case *fxevent.RolledBack:
		if e.Err != nil {
			Errorf("Rollback failed, error: %v", e.Err)
		}
	case *fxevent.Started:
		if e.Err != nil {
			Errorf("Start failed, error: %v", e.Err)
		} else {
			Infof("Application started.")
		}
	case *fxevent.LoggerInitialized:
		if e.Err != nil {
			Errorf("Logger initialization failed, error: %v", e.Err)
		} else {
			Debugf("Custom logger initialized: %s", e.ConstructorName)
		}
	}
}

// trimAnonymousSuffix strips the ".funcN" suffix Fx appends for anonymous
// functions so the hook owner's name is logged instead.
func trimAnonymousSuffix(funcName string) string {
	if idx := strings.LastIndex(funcName, ".func"); idx != -1 {
		return funcName[:idx]
	}
	return funcName
}
