package backend

import (
	"errors"
	"fmt"
	"strings"

	"spent/internal/config"
)

var errUnknownType = errors.New("unknown backend type")

// FromAppConfig narrows the application config to what the factory needs.
func FromAppConfig(cfg *config.Config) (Config, error) {
	if cfg == nil {
		return Config{}, errors.New("app config is nil")
	}
	t := BackendType(cfg.Backend)
	if !t.IsValid() {
		return Config{}, unknownType(t)
	}
	return Config{
		Type:                 t,
		DataFile:             cfg.DataFile,
		SQLiteDBPath:         cfg.SQLiteDBPath,
		AMQPURL:              cfg.AMQPURL,
		AMQPExchange:         cfg.AMQPExchange,
		AMQPQueue:            cfg.AMQPQueue,
		GoogleSpreadsheetID:  cfg.GoogleSpreadsheetID,
		GoogleSheetName:      cfg.GoogleSheetName,
		GoogleAuditSheetName: cfg.GoogleAuditSheetName,
	}, nil
}

// Validate reports every missing setting at once. AMQP and Sheets are only
// checked when enabled.
func (c Config) Validate() error {
	var errs []error
	switch c.Type {
	case FileBackend:
		if c.DataFile == "" {
			errs = append(errs, errors.New("file backend needs a data file path"))
		}
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			errs = append(errs, errors.New("sqlite backend needs a database path"))
		}
	default:
		errs = append(errs, unknownType(c.Type))
	}
	if c.AMQPURL != "" && (c.AMQPExchange == "" || c.AMQPQueue == "") {
		errs = append(errs, errors.New("AMQP exchange and queue are required when AMQP URL is set"))
	}
	return errors.Join(errs...)
}

func unknownType(t BackendType) error {
	return fmt.Errorf("%w %q (want one of %s)", errUnknownType, t, strings.Join(GetBackendTypeStrings(), ", "))
}

// GetBackendTypes lists the supported persisters.
func GetBackendTypes() []BackendType {
	return []BackendType{FileBackend, SQLiteBackend}
}

func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
