package models

import (
	"encoding/json"
	"errors"

	"gopkg.in/yaml.v3"
)

var errInvalidRecipients = errors.New("recipients must be a list or a map of channel to list")

// Recipients is either a flat list shared by every channel or a list per channel.
type Recipients struct {
	All        []string
	PerChannel map[string][]string
}

// For returns the recipients configured for channel.
func (r Recipients) For(channel string) []string {
	if list, ok := r.PerChannel[channel]; ok {
		return list
	}

	return r.All
}

// IsZero reports whether no recipients are configured.
func (r Recipients) IsZero() bool {
	return len(r.All) == 0 && len(r.PerChannel) == 0
}

func (r Recipients) MarshalJSON() ([]byte, error) {
	if r.PerChannel != nil {
		return json.Marshal(r.PerChannel)
	}

	if r.All == nil {
		return []byte("null"), nil
	}

	return json.Marshal(r.All)
}

func (r *Recipients) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		r.All = list

		return nil
	}

	var perChannel map[string][]string
	if err := json.Unmarshal(data, &perChannel); err == nil {
		r.PerChannel = perChannel

		return nil
	}

	return errInvalidRecipients
}

func (r *Recipients) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		return value.Decode(&r.All)
	case yaml.MappingNode:
		return value.Decode(&r.PerChannel)
	default:
		return errInvalidRecipients
	}
}
