package config

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// ErrBadOverride is returned for an option without "=".
	ErrBadOverride = errors.New("override must have the form key.path=value")
	// ErrUnknownKey is returned when the key path names no setting.
	ErrUnknownKey = errors.New("unknown config key")
)

// Override sets the setting at a dotted key path, for example
// "browser.timing.min_wait_time=15". The value is read as a bool, int,
// float or string, in that order. List settings take a comma-separated
// value.
func Override(cfg *Config, option string) error {
	keyPath, raw, ok := strings.Cut(option, "=")
	keyPath = strings.TrimSpace(keyPath)
	if !ok || keyPath == "" {
		return fmt.Errorf("%q: %w", option, ErrBadOverride)
	}

	var root yaml.Node
	if err := root.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	node := &root
	for _, key := range strings.Split(keyPath, ".") {
		node = child(node, key)
		if node == nil {
			return fmt.Errorf("%s: %w", keyPath, ErrUnknownKey)
		}
	}

	switch node.Kind {
	case yaml.ScalarNode:
		setScalar(node, raw)
	case yaml.SequenceNode:
		node.Content = nil
		for _, item := range splitList(raw) {
			n := &yaml.Node{}
			setScalar(n, item)
			n.Tag = "!!str"
			node.Content = append(node.Content, n)
		}
	default:
		return fmt.Errorf("%s is a section, not a value: %w", keyPath, ErrUnknownKey)
	}

	if err := root.Decode(cfg); err != nil {
		return fmt.Errorf("failed to apply %s: %w", keyPath, err)
	}

	log.Printf("INFO: Overriding config value %s = %s", keyPath, raw)
	return nil
}

// ApplyOverrides applies each option under the given section prefix.
func ApplyOverrides(cfg *Config, section string, options []string) error {
	for _, opt := range options {
		if section != "" {
			opt = section + "." + opt
		}
		if err := Override(cfg, opt); err != nil {
			return err
		}
	}
	return nil
}

func child(n *yaml.Node, key string) *yaml.Node {
	if n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}

func setScalar(n *yaml.Node, raw string) {
	n.Kind = yaml.ScalarNode
	n.Style = 0
	n.Tag = scalarTag(raw)
	n.Value = raw
	if n.Tag == "!!bool" {
		n.Value = strings.ToLower(raw)
	}
}

func scalarTag(raw string) string {
	switch strings.ToLower(raw) {
	case "true", "false":
		return "!!bool"
	}
	if _, err := strconv.Atoi(raw); err == nil && !strings.HasPrefix(raw, "-") && !strings.HasPrefix(raw, "+") {
		return "!!int"
	}
	if strings.Count(raw, ".") == 1 && strings.Trim(raw, "0123456789.") == "" && raw != "." {
		return "!!float"
	}
	return "!!str"
}
