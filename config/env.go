package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// envParser is a helper for parsing environment variables with validation.
// Problems are collected so every invalid variable is reported at once.
type envParser struct {
	errors []string
}

func (p *envParser) parseString(envName string, target *string) {
	if val := os.Getenv(envName); val != "" {
		*target = val
	}
}

// parseDuration parses a duration environment variable, ensuring it's positive
func (p *envParser) parseDuration(envName string, target *time.Duration) {
	val := os.Getenv(envName)
	if val == "" {
		return
	}

	duration, err := time.ParseDuration(val)
	if err != nil {
		p.errors = append(p.errors, fmt.Sprintf("%s: invalid duration format (use '30s', '1m', etc.)", envName))
		return
	}

	if duration <= 0 {
		p.errors = append(p.errors, fmt.Sprintf("%s must be positive", envName))
		return
	}

	*target = duration
}

// parseInt parses an integer environment variable, ensuring it's positive
func (p *envParser) parseInt(envName string, target *int) {
	val := os.Getenv(envName)
	if val == "" {
		return
	}

	intVal, err := strconv.Atoi(val)
	if err != nil {
		p.errors = append(p.errors, fmt.Sprintf("%s: must be a valid integer", envName))
		return
	}

	if intVal <= 0 {
		p.errors = append(p.errors, fmt.Sprintf("%s must be positive", envName))
		return
	}

	*target = intVal
}

// parseFloat parses a non-negative number of seconds or similar quantity
func (p *envParser) parseFloat(envName string, target *float64) {
	val := os.Getenv(envName)
	if val == "" {
		return
	}

	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		p.errors = append(p.errors, fmt.Sprintf("%s: must be a valid number", envName))
		return
	}

	if f < 0 {
		p.errors = append(p.errors, fmt.Sprintf("%s must not be negative", envName))
		return
	}

	*target = f
}

// parseList parses a comma separated list, dropping empty items
func (p *envParser) parseList(envName string, target *[]string) {
	val := os.Getenv(envName)
	if val == "" {
		return
	}

	var items []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	*target = items
}

// parseEnum parses an enum environment variable from a set of valid values
func (p *envParser) parseEnum(envName string, target *string, validValues []string) {
	val := os.Getenv(envName)
	if val == "" {
		return
	}

	normalized := strings.ToUpper(val)
	for _, v := range validValues {
		if v == normalized {
			*target = normalized
			return
		}
	}
	p.errors = append(p.errors, fmt.Sprintf("%s must be one of: %s", envName, strings.Join(validValues, ", ")))
}

func (p *envParser) err() error {
	if len(p.errors) == 0 {
		return nil
	}
	return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(p.errors, "\n  - "))
}
