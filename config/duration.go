package config

import (
	"encoding/json"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a wrapper around time.Duration that marshals to and from
// the human-readable form ("5s", "1m30s") in both JSON and YAML.
type Duration time.Duration

// MarshalJSON implements the json.Marshaler interface
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface
func (d *Duration) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return err
	}
	val, err := time.ParseDuration(str)
	*d = Duration(val)
	return err
}

// MarshalYAML implements the yaml.Marshaler interface
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// UnmarshalYAML implements the yaml.Unmarshaler interface
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var str string
	if err := node.Decode(&str); err != nil {
		return err
	}
	val, err := time.ParseDuration(str)
	*d = Duration(val)
	return err
}

// Seconds returns the duration rounded down to whole seconds.
func (d Duration) Seconds() int {
	return int(time.Duration(d) / time.Second)
}

// String returns the string representation of the duration
func (d Duration) String() string {
	return time.Duration(d).String()
}
