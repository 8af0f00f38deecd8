package ports

import "github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/domain"

// TelemetrySource streams raw readings from real equipment (OPC UA, Modbus)
// as an alternative to the synthetic generator.
type TelemetrySource interface {
	Start(out chan<- *domain.MachineReading) error
	Stop() error
}
