// Package daemon provides the main orchestration for themed.
// It coordinates the theme resolver, the OS appearance notifier, the
// appliers that reflect the effective appearance (marker file, hooks,
// D-Bus signal, history), and configuration hot-reload.
package daemon
