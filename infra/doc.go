// Package infra contains technical adapters such as MQTT alert publishers,
// metrics exporters and file ingestion. These packages should depend only on the
// interfaces defined in the core packages.
package infra
