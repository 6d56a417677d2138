// Package env reads process configuration from environment variables. The
// Must variants panic at startup so a misconfigured binary fails before it
// serves anything.
package env

import (
	"fmt"
	"os"
	"strconv"
)

// GetString reads a string variable, falling back to the optional default.
func GetString(name string, defaultValue ...string) string {
	value := os.Getenv(name)
	if value == "" && len(defaultValue) > 0 {
		value = defaultValue[0]
	}
	return value
}

// MustGetString reads a string variable and panics when it is unset or empty.
func MustGetString(name string) string {
	value := os.Getenv(name)
	if value == "" {
		panic(fmt.Sprintf("%s can't be empty", name))
	}
	return value
}

// GetInt reads an integer variable, falling back to the optional default when
// the value is unset or not a valid integer.
func GetInt(name string, defaultValue ...int) int {
	value, err := strconv.Atoi(os.Getenv(name))
	if err != nil && len(defaultValue) > 0 {
		value = defaultValue[0]
	}
	return value
}

// MustGetInt reads an integer variable and panics when it is unset or not a
// valid integer.
func MustGetInt(name string) int {
	value, err := strconv.Atoi(os.Getenv(name))
	if err != nil {
		panic(fmt.Sprintf("%s must contain an int value", name))
	}
	return value
}
