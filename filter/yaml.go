package filter

import "gopkg.in/yaml.v3"

// MarshalYAML serializes the Config so an external configuration loader
// (out of scope for this module) can persist a Filter's rule sets to a
// file without this package ever reading or writing one itself.
func (c Config) MarshalYAML() (interface{}, error) {
	type plain Config
	return plain(c), nil
}

// UnmarshalYAML decodes a Config from YAML produced by MarshalYAML or
// hand-authored by an operator.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	type plain Config
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	*c = Config(p)
	return nil
}
