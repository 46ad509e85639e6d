// Package prediction provides the forecasts consumed by the runner: the
// demand and production profiles of each agent and the market tariff over a
// trading horizon.
package prediction
