// Package yamlloader is a concrete core.LibraryLoader backed by a YAML file
// on disk, in the style of the teacher's orchestration.WorkflowDefinition:
// yaml-tagged struct literals unmarshalled with gopkg.in/yaml.v3, then
// translated into core constructors so every structural invariant (I1-I4)
// is re-validated on load rather than trusted from the file.
package yamlloader
