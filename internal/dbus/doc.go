// Package dbus talks to the session bus. It reads and follows the XDG Desktop
// Portal color-scheme setting, and exports the io.github.jmylchreest.Themed1
// control interface for themed.
package dbus
