// Package theme resolves the user's light/dark/system preference into the
// appearance that is actually applied. It persists the preference through a
// Store, follows the OS color scheme through a Notifier while the preference
// is "system", and fans applied changes out to registered observers.
package theme
