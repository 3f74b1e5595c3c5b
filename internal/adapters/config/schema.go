package config

import "gopkg.in/yaml.v3"

// toastfileDTO mirrors the YAML shape of a toastfile before it is
// translated into the immutable domain.Toastfile.
type toastfileDTO struct {
	Image         string             `yaml:"image"`
	Default       string             `yaml:"default"`
	Location      string             `yaml:"location"`
	User          string             `yaml:"user"`
	CommandPrefix string             `yaml:"command_prefix"`
	Tasks         map[string]taskDTO `yaml:"tasks"`
}

// envBindingDTO decodes a scalar string (the declared default) for one
// environment binding. yaml.v3 does not call UnmarshalYAML for a `null`
// value; it stores a nil *envBindingDTO in the map instead, which the
// loader treats as required (no default).
type envBindingDTO struct {
	required bool
	value    string
}

func (b *envBindingDTO) UnmarshalYAML(node *yaml.Node) error {
	if node.Tag == "!!null" {
		b.required = true
		return nil
	}
	var value string
	if err := node.Decode(&value); err != nil {
		return err
	}
	b.value = value
	return nil
}

type mountPathDTO struct {
	Host      string
	Container string
}

func (m *mountPathDTO) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var single string
		if err := node.Decode(&single); err != nil {
			return err
		}
		m.Host, m.Container = single, single
		return nil
	}

	var pair struct {
		Host      string `yaml:"host"`
		Container string `yaml:"container"`
	}
	if err := node.Decode(&pair); err != nil {
		return err
	}
	m.Host, m.Container = pair.Host, pair.Container
	return nil
}

type portMappingDTO struct {
	Host      string `yaml:"host"`
	Container string `yaml:"container"`
}

// taskDTO mirrors the YAML shape of one task declaration.
type taskDTO struct {
	Description          string                    `yaml:"description"`
	Dependencies         []string                  `yaml:"dependencies"`
	Cache                *bool                     `yaml:"cache"`
	Environment          map[string]*envBindingDTO `yaml:"environment"`
	InputPaths           []string                  `yaml:"input_paths"`
	ExcludedInputPaths   []string                  `yaml:"excluded_input_paths"`
	OutputPaths          []string                  `yaml:"output_paths"`
	OutputPathsOnFailure []string                  `yaml:"output_paths_on_failure"`
	MountPaths           []mountPathDTO            `yaml:"mount_paths"`
	MountReadonly        bool                      `yaml:"mount_readonly"`
	Ports                []portMappingDTO          `yaml:"ports"`
	Location             *string                   `yaml:"location"`
	User                 *string                   `yaml:"user"`
	CommandPrefix        *string                   `yaml:"command_prefix"`
	Command              string                    `yaml:"command"`
	ExtraDockerArguments []string                  `yaml:"extra_docker_arguments"`
}

// cacheConfigDTO mirrors the YAML shape of the separate configuration
// file (spec §6): docker repo/CLI selection and the four independent
// cache read/write toggles.
type cacheConfigDTO struct {
	DockerRepo       *string `yaml:"docker_repo"`
	DockerCLI        *string `yaml:"docker_cli"`
	ReadLocalCache   *bool   `yaml:"read_local_cache"`
	WriteLocalCache  *bool   `yaml:"write_local_cache"`
	ReadRemoteCache  *bool   `yaml:"read_remote_cache"`
	WriteRemoteCache *bool   `yaml:"write_remote_cache"`
}
