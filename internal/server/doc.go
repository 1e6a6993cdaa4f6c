// Package server implements the control-plane HTTP surface: status, start,
// stop, and options endpoints wired directly to a controller.Controller.
package server 