package types

// ManagedProcess is the declarative description of a single long-running
// process under Mercury's supervision, as assembled by an external
// collaborator (the system-description loader) from the on-disk source.
//
// Field meanings follow the spec's data model exactly: ProvidedTopics'
// values are semantically irrelevant to the core — only the key set is
// consumed when building dependency edges.
type ManagedProcess struct {
	ProcessName                   string            `yaml:"process_name"`
	ExecutablePath                string            `yaml:"executable_path"`
	Arguments                     []string          `yaml:"arguments"`
	Environment                   map[string]string `yaml:"environment"`
	ProvidedTopics                map[string]int     `yaml:"provided_topics"`
	RequiredTopics                []string           `yaml:"required_topics"`
	AdditionalProcessDependencies []string           `yaml:"additional_process_dependencies"`
	LogDir                        string             `yaml:"logdir"`

	FailPolicy     *FailPolicyConfig     `yaml:"fail_policy"`
	RelaunchPolicy *RelaunchPolicyConfig `yaml:"relaunch_policy"`
	IgnorePolicy   *IgnorePolicyConfig   `yaml:"ignore_policy"`
}

// SystemDescription is the root document an external collaborator (the
// config loader, or the sibling configuration linter) hands to Mercury's
// core once it has been validated for presence and syntactic well-formedness.
type SystemDescription struct {
	Processes []ManagedProcess `yaml:"processes"`
}

// LogFile returns the path managed process stdout/stderr should be appended
// to, or "" if the process declared no logdir.
func (p ManagedProcess) LogFile() string {
	if p.LogDir == "" {
		return ""
	}

	return p.LogDir + "/" + p.ProcessName + ".log"
}
