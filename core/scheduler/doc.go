// Package scheduler generates the departure slots of a service day. Slots
// follow a fixed cadence between a window start and end expressed as wall
// clock times. Windows can be loaded from JSON or YAML files.
package scheduler
